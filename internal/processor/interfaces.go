package processor

import (
	"context"
	"time"

	"resume-screener/internal/types"

	"github.com/cloudwego/eino/components/model"
)

//
// 文档解析相关接口
//

// DocumentRenderer 把本地文件渲染为纯文本
type DocumentRenderer interface {
	// RenderFile displayName 为用户上传时的原始文件名，用于判断格式和日志
	RenderFile(ctx context.Context, path, displayName string) (string, error)
}

// ExperienceParser 从章节中提取联系方式和工作经历
type ExperienceParser interface {
	Extract(ctx context.Context, sections *types.SectionMap) (types.ExperienceResult, error)
}

//
// 评估相关接口
//

// JDNormalizer 岗位描述归一化
type JDNormalizer interface {
	Normalize(ctx context.Context, jdText string) (*types.JobDescriptionRecord, error)
}

// Evaluator 评估模型调用
type Evaluator interface {
	Call(ctx context.Context, op, systemContent, userContent string, callOpts ...model.Option) (string, error)
}

// ResumeScorer 批量评分，输出与输入等长且顺序一致
type ResumeScorer interface {
	ScoreBatch(ctx context.Context, resumes []types.ResumeRecord, jd *types.JobDescriptionRecord) []types.ScoreOutcome
}

//
// 观测
//

// Observer 接收流水线各阶段的耗时和每份简历的结果，由 metrics 包实现
type Observer interface {
	// ObserveStage stage 取值 render/extract/normalize_jd/score/rank
	ObserveStage(stage string, elapsed time.Duration, err error)
	// ObserveOutcome kind 为空表示成功，否则为 types.ErrorKind
	ObserveOutcome(kind string)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, error) {}
func (nopObserver) ObserveOutcome(string)                    {}
