package storage

import (
	"time"

	"resume-screener/internal/types"
)

// ScreeningCompletedMessage 一次筛选完成后发布的事件
type ScreeningCompletedMessage struct {
	RequestID   string         `json:"request_id"`
	Source      string         `json:"source,omitempty"`
	JobSkills   []string       `json:"job_skills"`
	ResumeCount int            `json:"resume_count"`
	FailedCount int            `json:"failed_count"`
	Top         []TopCandidate `json:"top"`
	CompletedAt time.Time      `json:"completed_at"`
}

// TopCandidate 事件中携带的排名条目摘要
type TopCandidate struct {
	Name         string        `json:"name"`
	MatchPercent types.Percent `json:"match_percent"`
}

// NewScreeningCompletedMessage 从排序结果构造事件，Top 最多 limit 条，limit <= 0 表示全部
func NewScreeningCompletedMessage(requestID string, jobSkills []string, resumeCount, failedCount int, ranked []types.RankedEntry, limit int) ScreeningCompletedMessage {
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	top := make([]TopCandidate, 0, limit)
	for _, e := range ranked[:limit] {
		top = append(top, TopCandidate{Name: e.Name, MatchPercent: e.MatchPercent})
	}
	if jobSkills == nil {
		jobSkills = []string{}
	}
	return ScreeningCompletedMessage{
		RequestID:   requestID,
		JobSkills:   jobSkills,
		ResumeCount: resumeCount,
		FailedCount: failedCount,
		Top:         top,
		CompletedAt: time.Now().UTC(),
	}
}
