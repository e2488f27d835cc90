package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"resume-screener/internal/parser"
	"resume-screener/internal/tracing"
	"resume-screener/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("resume-screener/processor")

// UnknownCandidate 姓名和邮箱都缺失时的展示名
const UnknownCandidate = "Unknown"

// ResumeDocument 一份已落盘的上传简历
type ResumeDocument struct {
	FileName   string // 用户上传时的原始文件名
	Path       string // 本地路径
	StoredName string // 落盘后的文件名，用于拼接下载地址；为空时不输出下载地址
}

// AnalyzeRequest 一次筛选请求
type AnalyzeRequest struct {
	JobDescription string
	Documents      []ResumeDocument
	TopN           int  // NoLimit 表示全部，0 返回空列表
	Descending     bool // 默认应为 true
}

// AnalyzeResult 一次筛选的完整结果
type AnalyzeResult struct {
	Job      *types.JobDescriptionRecord
	Records  []types.ResumeRecord // 与 Documents 一一对应
	Outcomes []types.ScoreOutcome // 与 Documents 一一对应
	Ranked   []types.RankedEntry  // 排序、截断后的输出
	Failed   int                  // 失败的简历数（提取失败或评分失败）
}

// ParsedResume 单份文档的解析结果；Err 非 nil 表示文档无法提取文本，不参与评分
type ParsedResume struct {
	Record types.ResumeRecord
	Err    error
}

// Pipeline 简历筛选流水线：解析 -> 岗位描述归一化 -> 并发评分 -> 排序
type Pipeline struct {
	comp     Components
	settings Settings
}

// NewPipeline 创建流水线，缺失的纯本地组件使用默认实现
func NewPipeline(comp *Components, set *Settings, opts ...SettingOpt) (*Pipeline, error) {
	if comp == nil {
		return nil, errors.New("组件不能为空")
	}
	if set == nil {
		set = DefaultSettings()
	}
	s := *set
	for _, opt := range opts {
		opt(&s)
	}
	if s.Logger == nil {
		s.Logger = DefaultSettings().Logger
	}
	if s.ParseWorkers <= 0 {
		s.ParseWorkers = 4
	}

	c := *comp
	if c.Renderer == nil {
		return nil, errors.New("文档渲染器未初始化")
	}
	if c.JD == nil || c.Scorer == nil || c.Experience == nil {
		return nil, errors.New("评估组件未初始化")
	}
	if c.Segmenter == nil {
		c.Segmenter = parser.NewSegmenter()
	}
	catalog := c.Segmenter.Catalog()
	if c.Skills == nil {
		c.Skills = parser.NewSkillExtractor(catalog)
	}
	if c.Education == nil {
		c.Education = parser.NewEducationExtractor(catalog)
	}
	if c.Projects == nil {
		c.Projects = parser.NewProjectsExtractor(catalog)
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return &Pipeline{comp: c, settings: s}, nil
}

// Analyze 执行一次完整筛选。请求校验失败或岗位描述无法归一化时返回错误，
// 其余单份简历的失败都体现在结果条目中。
func (p *Pipeline) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.Int("resume.count", len(req.Documents)),
		attribute.Int("request.top_n", req.TopN),
	)

	if strings.TrimSpace(req.JobDescription) == "" {
		tracing.RecordError(span, types.ErrEmptyJobDescription, tracing.ErrorTypeValidation)
		return nil, types.ErrEmptyJobDescription
	}
	if len(req.Documents) == 0 {
		tracing.RecordError(span, types.ErrNoResumes, tracing.ErrorTypeValidation)
		return nil, types.ErrNoResumes
	}

	start := time.Now()
	jd, err := p.comp.JD.Normalize(ctx, req.JobDescription)
	p.comp.Observer.ObserveStage("normalize_jd", time.Since(start), err)
	if err != nil {
		p.logWarn("岗位描述归一化失败: %v", err)
		tracing.RecordError(span, err, tracing.ErrorTypeFor(err))
		return nil, err
	}
	p.logInfo("岗位描述: 技能 %d 项, 学历要求 %d 项", len(jd.Skills), len(jd.EducationRequirements))

	parsed := p.ParseAll(ctx, req.Documents)

	result := &AnalyzeResult{
		Job:      jd,
		Records:  make([]types.ResumeRecord, len(parsed)),
		Outcomes: make([]types.ScoreOutcome, len(parsed)),
	}

	var scorable []types.ResumeRecord
	var scorableIdx []int
	for i, pr := range parsed {
		result.Records[i] = pr.Record
		if pr.Err != nil {
			result.Outcomes[i] = types.ScoreFailed(string(types.Classify(pr.Err)), pr.Err)
			continue
		}
		scorable = append(scorable, pr.Record)
		scorableIdx = append(scorableIdx, i)
	}

	start = time.Now()
	scored := p.comp.Scorer.ScoreBatch(ctx, scorable, jd)
	p.comp.Observer.ObserveStage("score", time.Since(start), nil)
	if len(scored) != len(scorable) {
		return nil, fmt.Errorf("评分结果数量不一致: 期望 %d, 实际 %d", len(scorable), len(scored))
	}
	for k, idx := range scorableIdx {
		result.Outcomes[idx] = scored[k]
	}

	entries := make([]types.RankedEntry, len(parsed))
	for i := range parsed {
		entries[i] = p.BuildEntry(&result.Records[i], result.Outcomes[i], req.Documents[i].StoredName)
		if result.Outcomes[i].Succeeded() {
			p.comp.Observer.ObserveOutcome("")
		} else {
			result.Failed++
			p.comp.Observer.ObserveOutcome(result.Outcomes[i].Failure.Kind)
		}
	}

	start = time.Now()
	result.Ranked = Rank(entries, req.TopN, req.Descending)
	p.comp.Observer.ObserveStage("rank", time.Since(start), nil)

	span.SetAttributes(attribute.Int("resume.failed", result.Failed))
	p.logInfo("筛选完成: 共 %d 份简历, 失败 %d 份, 返回 %d 条", len(parsed), result.Failed, len(result.Ranked))
	return result, nil
}

// ParseAll 每份文档一个 goroutine，受 ParseWorkers 限制，结果按下标收集
func (p *Pipeline) ParseAll(ctx context.Context, docs []ResumeDocument) []ParsedResume {
	out := make([]ParsedResume, len(docs))
	semaphore := make(chan struct{}, p.settings.ParseWorkers)
	var wg sync.WaitGroup

	for i := range docs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				err := types.NewExtractionError(docs[idx].FileName, "等待解析槽位时取消", ctx.Err())
				out[idx] = ParsedResume{Record: emptyRecord(docs[idx]), Err: err}
				return
			}
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					err := types.NewExtractionError(docs[idx].FileName, "解析异常", fmt.Errorf("%v", r))
					out[idx] = ParsedResume{Record: emptyRecord(docs[idx]), Err: err}
				}
			}()
			out[idx] = p.ParseDocument(ctx, docs[idx])
		}(i)
	}
	wg.Wait()
	return out
}

// ParseDocument 渲染、分段并运行四个提取器。
// 任一提取器失败时该字段使用空默认值，错误记录在 Record.Errors 中。
func (p *Pipeline) ParseDocument(ctx context.Context, doc ResumeDocument) ParsedResume {
	ctx, span := tracer.Start(ctx, "pipeline.parse_document")
	defer span.End()
	span.SetAttributes(attribute.String("document.name", doc.FileName))

	record := emptyRecord(doc)

	start := time.Now()
	text, err := p.comp.Renderer.RenderFile(ctx, doc.Path, doc.FileName)
	p.comp.Observer.ObserveStage("render", time.Since(start), err)
	if err != nil {
		if !errors.Is(err, types.ErrExtraction) {
			err = types.NewExtractionError(doc.FileName, "", err)
		}
		p.logWarn("文档 %s 提取失败: %v", doc.FileName, err)
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		record.Errors = append(record.Errors, err.Error())
		return ParsedResume{Record: record, Err: err}
	}

	sections := p.comp.Segmenter.Segment(text)
	p.logDebug("文档 %s 分段: %v", doc.FileName, sections.Labels())

	record.Skills = p.comp.Skills.ExtractAndClean(sections)
	record.Education = p.comp.Education.Extract(sections)
	record.Projects = p.comp.Projects.Extract(sections)

	start = time.Now()
	exp, err := p.comp.Experience.Extract(ctx, sections)
	p.comp.Observer.ObserveStage("extract", time.Since(start), err)
	record.ContactInfo = exp.ContactInfo
	if err != nil {
		p.logWarn("文档 %s 经历提取失败: %v", doc.FileName, err)
		record.Errors = append(record.Errors, err.Error())
	} else {
		record.Experience = exp.Experience
	}
	record.Normalize()
	span.SetAttributes(
		attribute.String("candidate.name", tracing.SafeAttributeValue("name", record.ContactInfo.Name, tracing.DefaultMaxLength)),
		attribute.String("candidate.email", tracing.SafeAttributeValue("email", record.ContactInfo.Email, tracing.DefaultMaxLength)),
		attribute.Int("candidate.skills", len(record.Skills)),
	)
	return ParsedResume{Record: record}
}

// BuildEntry 把解析记录和评分结果组装为输出条目
func (p *Pipeline) BuildEntry(record *types.ResumeRecord, outcome types.ScoreOutcome, storedName string) types.RankedEntry {
	entry := types.RankedEntry{
		Name:             DisplayName(record.ContactInfo),
		Email:            record.ContactInfo.Email,
		Phone:            record.ContactInfo.Phone,
		MissingSkills:    []string{},
		OriginalFileName: record.OriginalFileName,
	}
	if storedName != "" && p.settings.FileURLPrefix != "" {
		entry.OriginalFileURL = strings.TrimRight(p.settings.FileURLPrefix, "/") + "/" + storedName
	}

	if !outcome.Succeeded() {
		entry.MatchPercent = types.NaNPercent()
		entry.SkillsScore = types.NaNPercent()
		entry.ExperienceScore = types.NaNPercent()
		entry.EducationScore = types.NaNPercent()
		entry.ProjectScore = types.NaNPercent()
		entry.DomainMatchScore = types.NaNPercent()
		entry.Error = "评估失败"
		if outcome.Failure != nil && outcome.Failure.Error != "" {
			entry.Error = outcome.Failure.Error
		}
		return entry
	}

	s := outcome.Score
	if s.AdjustedFinalScore.IsMissing() {
		entry.MatchPercent = types.NaNPercent()
	} else {
		entry.MatchPercent = types.ToPercent(float64(s.AdjustedFinalScore))
	}
	entry.SkillsScore = types.ToPercent(s.SkillsScore)
	entry.ExperienceScore = types.ToPercent(s.ExperienceScore)
	entry.EducationScore = types.ToPercent(s.EducationScore)
	entry.ProjectScore = types.ToPercent(s.ProjectRelevanceScore)
	entry.DomainMatchScore = types.ToPercent(s.DomainMatchScore)
	if s.MissingSkills != nil {
		entry.MissingSkills = s.MissingSkills
	}
	return entry
}

// DisplayName 姓名 -> 邮箱 -> "Unknown"，首字母大写
func DisplayName(c types.ContactInfo) string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = strings.TrimSpace(c.Email)
	}
	if name == "" {
		name = UnknownCandidate
	}
	return TitleCase(name)
}

func emptyRecord(doc ResumeDocument) types.ResumeRecord {
	r := types.ResumeRecord{
		OriginalFileName: doc.FileName,
		StoredFileName:   doc.StoredName,
	}
	r.Normalize()
	return r
}
