package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"

	"resume-screener/internal/parser"
	"resume-screener/internal/types"
	"resume-screener/pkg/agent"

	"github.com/cloudwego/eino/components/model"
)

const scorerSystemPrompt = `You are an expert technical recruiter. Compare the candidate's resume with the job description and score how well they fit.
Match semantically, not literally: related technologies, synonyms and equivalent experience count as matches.

Scoring rules:
- Every score is a decimal between 0 and 1.
- If the candidate lacks work experience, job-relevant projects may partly compensate in experience_score. Only projects that are relevant to the job's skills or responsibilities count.
- If the job description states no education requirements, education_score must be 1.0.
- If the resume lists no projects, project_relevance_score must be 0.0.
- final_score = 0.35*experience_score + 0.45*skills_score + 0.10*education_score + 0.10*project_relevance_score
- domain_match_score measures how closely the candidate's industry and domain match the job's domain.
- adjusted_final_score = final_score * domain_match_score
- missing_skills lists required job skills that the resume does not evidence.

Return only a JSON object with exactly these fields:
{"education_score": float, "skills_score": float, "experience_score": float, "project_relevance_score": float, "final_score": float, "domain_match_score": float, "adjusted_final_score": float, "missing_skills": [string]}`

const scorerUserPrompt = "Resume:\n%s\n\nJob Description:\n%s\n\nEvaluate the match and return the JSON object."

// resumeView 评分时只发送这四个字段
type resumeView struct {
	Skills     []string                `json:"skills"`
	Education  []string                `json:"education"`
	Experience []types.ExperienceEntry `json:"experience"`
	Projects   []string                `json:"projects"`
}

type jdView struct {
	Skills           []string `json:"skills"`
	Responsibilities []string `json:"responsibilities"`
	ExperienceReqs   []string `json:"experience_reqs"`
	EducationReqs    []string `json:"education_reqs"`
}

// Scorer 并发调用评估模型为每份简历打分
type Scorer struct {
	evaluator   Evaluator
	temperature float32
	maxTokens   int
	concurrency int
	logger      *log.Logger
}

// ScorerOption 评分器选项
type ScorerOption func(*Scorer)

// WithScorerTemperature 设置采样温度
func WithScorerTemperature(t float32) ScorerOption {
	return func(s *Scorer) {
		s.temperature = t
	}
}

// WithScorerMaxTokens 设置最大输出 token，0 表示不限制
func WithScorerMaxTokens(n int) ScorerOption {
	return func(s *Scorer) {
		s.maxTokens = n
	}
}

// WithScoreConcurrency 限制同时进行的评估调用数，0 表示不限制
func WithScoreConcurrency(n int) ScorerOption {
	return func(s *Scorer) {
		if n >= 0 {
			s.concurrency = n
		}
	}
}

// WithScorerLogger 设置日志
func WithScorerLogger(l *log.Logger) ScorerOption {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScorer 创建评分器
func NewScorer(evaluator Evaluator, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		evaluator:   evaluator,
		temperature: 0.2,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ResumeScorer = (*Scorer)(nil)

// ScoreBatch 所有简历并发评估，结果按下标收集。单份失败只影响该条结果。
func (s *Scorer) ScoreBatch(ctx context.Context, resumes []types.ResumeRecord, jd *types.JobDescriptionRecord) []types.ScoreOutcome {
	outcomes := make([]types.ScoreOutcome, len(resumes))
	if len(resumes) == 0 {
		return outcomes
	}

	var semaphore chan struct{}
	if s.concurrency > 0 {
		semaphore = make(chan struct{}, s.concurrency)
	}

	var wg sync.WaitGroup
	for i := range resumes {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Printf("评分 %s 时发生 panic: %v", resumes[idx].OriginalFileName, r)
					outcomes[idx] = types.ScoreFailed(string(types.KindContract), fmt.Errorf("评分异常: %v", r))
				}
			}()

			if semaphore != nil {
				select {
				case semaphore <- struct{}{}:
					defer func() { <-semaphore }()
				case <-ctx.Done():
					outcomes[idx] = types.ScoreFailed(string(types.KindTransport),
						types.NewTransportError("score_resume", "上下文已取消", ctx.Err()))
					return
				}
			}
			outcomes[idx] = s.Score(ctx, &resumes[idx], jd)
		}(i)
	}
	wg.Wait()
	return outcomes
}

// Score 单份简历评分
func (s *Scorer) Score(ctx context.Context, resume *types.ResumeRecord, jd *types.JobDescriptionRecord) types.ScoreOutcome {
	if jd == nil {
		return types.ScoreFailed(string(types.KindJD), types.NewJDError("缺少岗位描述", nil))
	}

	user, err := buildScorePrompt(resume, jd)
	if err != nil {
		return types.ScoreFailed(string(types.KindContract), types.NewContractError("score_resume", "构造评分 prompt 失败", err))
	}

	opts := []model.Option{model.WithTemperature(s.temperature), agent.WithJSONResponse()}
	if s.maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(s.maxTokens))
	}
	raw, err := s.evaluator.Call(ctx, "score_resume", scorerSystemPrompt, user, opts...)
	if err != nil {
		s.logger.Printf("评分 %s 失败: %v", resume.OriginalFileName, err)
		return types.ScoreFailed(string(types.Classify(err)), err)
	}

	result, err := ParseScoreResponse(raw, resume, jd)
	if err != nil {
		s.logger.Printf("评分结果无法解析 %s: %v", resume.OriginalFileName, err)
		return types.ScoreFailed(string(types.KindContract),
			types.NewContractError("score_resume", "评分结果不是合法 JSON", err))
	}
	return types.ScoreOK(result)
}

func buildScorePrompt(resume *types.ResumeRecord, jd *types.JobDescriptionRecord) (string, error) {
	r := *resume
	r.Normalize()
	j := *jd
	j.Normalize()

	resumeJSON, err := json.MarshalIndent(resumeView{
		Skills:     r.Skills,
		Education:  r.Education,
		Experience: r.Experience,
		Projects:   r.Projects,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	jdJSON, err := json.MarshalIndent(jdView{
		Skills:           j.Skills,
		Responsibilities: j.Responsibilities,
		ExperienceReqs:   j.ExperienceRequirements,
		EducationReqs:    j.EducationRequirements,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(scorerUserPrompt, resumeJSON, jdJSON), nil
}

// ParseScoreResponse 解析评分输出并应用确定性规则：
// 岗位无学历要求时 education 为 1，简历无项目时 project 为 0，
// 缺失的子分数按 0 计并截断到 [0,1]。
// final_score 总是按权重公式由最终的子分数重新计算，保证与子分数一致。
// adjusted_final_score 缺失或非数值时保持 NaN，否则按 final × domain 重新计算并截断到 [0,1]。
func ParseScoreResponse(raw string, resume *types.ResumeRecord, jd *types.JobDescriptionRecord) (*types.ScoreResult, error) {
	var fields map[string]json.RawMessage
	if err := parser.DecodeJSONObject(raw, &fields); err != nil {
		return nil, err
	}

	result := &types.ScoreResult{
		EducationScore:        clamp01(numberOr(fields["education_score"], 0)),
		SkillsScore:           clamp01(numberOr(fields["skills_score"], 0)),
		ExperienceScore:       clamp01(numberOr(fields["experience_score"], 0)),
		ProjectRelevanceScore: clamp01(numberOr(fields["project_relevance_score"], 0)),
		DomainMatchScore:      clamp01(numberOr(fields["domain_match_score"], 0)),
		AdjustedFinalScore:    types.NaNPercent(),
	}
	if jd != nil && len(jd.EducationRequirements) == 0 {
		result.EducationScore = 1.0
	}
	if resume != nil && len(resume.Projects) == 0 {
		result.ProjectRelevanceScore = 0.0
	}

	// 模型给出的 final/adjusted 只用来判断是否可用，数值按规则重算
	result.FinalScore = result.WeightedFinal()
	if _, ok := number(fields["adjusted_final_score"]); ok {
		result.AdjustedFinalScore = types.Percent(clamp01(result.FinalScore * result.DomainMatchScore))
	}

	missing, err := parser.StringList(fields["missing_skills"])
	if err != nil {
		missing = []string{}
	}
	result.MissingSkills = missing
	return result, nil
}

// number 接受 JSON 数字或数字字符串
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numberOr(raw json.RawMessage, def float64) float64 {
	if f, ok := number(raw); ok {
		return f
	}
	return def
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
