package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// 综合分权重
const (
	WeightExperience = 0.35
	WeightSkills     = 0.45
	WeightEducation  = 0.10
	WeightProject    = 0.10
)

// ScoreResult 单份简历的评估结果，子分数均在 [0,1]
type ScoreResult struct {
	EducationScore        float64  `json:"education_score"`
	SkillsScore           float64  `json:"skills_score"`
	ExperienceScore       float64  `json:"experience_score"`
	ProjectRelevanceScore float64  `json:"project_relevance_score"`
	DomainMatchScore      float64  `json:"domain_match_score"`
	FinalScore            float64  `json:"final_score"`
	AdjustedFinalScore    Percent  `json:"adjusted_final_score"` // 缺失时为 NaN
	MissingSkills         []string `json:"missing_skills"`
}

// WeightedFinal 按固定权重计算综合分
func (s *ScoreResult) WeightedFinal() float64 {
	return WeightExperience*s.ExperienceScore +
		WeightSkills*s.SkillsScore +
		WeightEducation*s.EducationScore +
		WeightProject*s.ProjectRelevanceScore
}

// ErrorResult 评估失败时的占位结果
type ErrorResult struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// ScoreOutcome ScoreResult 与 ErrorResult 的标签联合，两者有且仅有一个非 nil
type ScoreOutcome struct {
	Score   *ScoreResult
	Failure *ErrorResult
}

// Succeeded 是否评估成功
func (o ScoreOutcome) Succeeded() bool {
	return o.Score != nil && o.Failure == nil
}

// ScoreOK 构造成功结果
func ScoreOK(s *ScoreResult) ScoreOutcome {
	return ScoreOutcome{Score: s}
}

// ScoreFailed 构造失败结果
func ScoreFailed(kind string, err error) ScoreOutcome {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ScoreOutcome{Failure: &ErrorResult{Kind: kind, Error: msg, Err: err}}
}

// Percent 百分比数值；NaN 表示缺失，JSON 输出为 null
type Percent float64

// NaNPercent 缺失值
func NaNPercent() Percent {
	return Percent(math.NaN())
}

// IsMissing 是否为缺失值
func (p Percent) IsMissing() bool {
	f := float64(p)
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// ValueOr 缺失时返回 def
func (p Percent) ValueOr(def float64) float64 {
	if p.IsMissing() {
		return def
	}
	return float64(p)
}

// MarshalJSON 实现 json.Marshaler
func (p Percent) MarshalJSON() ([]byte, error) {
	if p.IsMissing() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(p), 'f', -1, 64)), nil
}

// UnmarshalJSON 实现 json.Unmarshaler，null 解析为 NaN
func (p *Percent) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = NaNPercent()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = Percent(f)
	return nil
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}

// ToPercent 将 [0,1] 分数换算为保留两位小数的百分比
func ToPercent(score float64) Percent {
	return Percent(Round2(score * 100))
}

// RankedEntry 排名输出记录
type RankedEntry struct {
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	MatchPercent     Percent  `json:"match_percent"`
	SkillsScore      Percent  `json:"skills_score"`
	ExperienceScore  Percent  `json:"experience_score"`
	EducationScore   Percent  `json:"education_score"`
	ProjectScore     Percent  `json:"project_score"`
	DomainMatchScore Percent  `json:"domain_match_score"`
	MissingSkills    []string `json:"missing_skills"`
	OriginalFileName string   `json:"original_file_name"`
	OriginalFileURL  string   `json:"original_file_url,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Failed 是否为失败条目
func (e RankedEntry) Failed() bool {
	return e.Error != ""
}
