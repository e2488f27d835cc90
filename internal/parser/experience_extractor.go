package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"resume-screener/internal/types"

	"github.com/cloudwego/eino/components/model"
)

// DefaultExperiencePriority 经历类标题分组，靠前的组优先；同组内按文档顺序取第一个
var DefaultExperiencePriority = [][]string{
	{"PROFESSIONAL EXPERIENCE", "EXPERIENCE", "WORK EXPERIENCE", "EMPLOYMENT HISTORY",
		"CAREER HISTORY", "JOB HISTORY", "INDUSTRY EXPERIENCE"},
	{"INTERNSHIPS", "INTERNSHIP EXPERIENCE", "CO-OP EXPERIENCE"},
	{"RESEARCH EXPERIENCE", "RESEARCH POSITIONS"},
	{"FREELANCE EXPERIENCE", "CONTRACT WORK"},
}

const experienceSystemPrompt = `You are an expert resume parser. Extract and return a structured JSON with these fields:
- name (string)
- email (string)
- phone (string)
- experience: a list of objects with
   - job_title (string)
   - company (string)
   - duration: {start, end}
   - location (string)
   - responsibilities: list of strings
Return only valid JSON without explanation.`

const experienceUserPrompt = "Here is the relevant text from a resume:\n\n%s\n\nReturn structured JSON as specified."

var (
	emailPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	phonePattern = regexp.MustCompile(`(\+\d{1,3}[-.]?)?\s*\(?\d{3}\)?[-.]?\s*\d{3}[-.]?\s*\d{4}`)
)

// ExperienceExtractor 拼接 HEADER 与首个经历章节，交给评估模型解析联系方式和工作经历
type ExperienceExtractor struct {
	client      *EvaluatorClient
	groups      [][]string
	temperature float32
	logger      *log.Logger
}

// ExperienceOption 配置选项
type ExperienceOption func(*ExperienceExtractor)

// WithExperienceTemperature 设置采样温度
func WithExperienceTemperature(t float32) ExperienceOption {
	return func(e *ExperienceExtractor) {
		e.temperature = t
	}
}

// WithExperienceLogger 设置日志
func WithExperienceLogger(l *log.Logger) ExperienceOption {
	return func(e *ExperienceExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithExperiencePriority 自定义经历标题分组
func WithExperiencePriority(groups [][]string) ExperienceOption {
	return func(e *ExperienceExtractor) {
		if len(groups) > 0 {
			e.groups = groups
		}
	}
}

// NewExperienceExtractor 创建经历/联系方式提取器
func NewExperienceExtractor(client *EvaluatorClient, catalog *SectionCatalog, opts ...ExperienceOption) *ExperienceExtractor {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	e := &ExperienceExtractor{
		client:      client,
		groups:      DefaultExperiencePriority,
		temperature: 0.2,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	canonical := make([][]string, 0, len(e.groups))
	for _, group := range e.groups {
		canonical = append(canonical, catalog.CanonicalAll(group))
	}
	e.groups = canonical
	return e
}

// ExperienceText 返回 "LABEL:\nbody" 形式的首个经历章节，没有时返回空串
func (e *ExperienceExtractor) ExperienceText(sections *types.SectionMap) string {
	labels := sections.Labels()
	for _, group := range e.groups {
		inGroup := make(map[string]struct{}, len(group))
		for _, label := range group {
			inGroup[label] = struct{}{}
		}
		for _, label := range labels {
			if _, ok := inGroup[label]; !ok {
				continue
			}
			body, _ := sections.Get(label)
			return label + ":\n" + body
		}
	}
	return ""
}

// CombinedText HEADER 与经历章节拼接后的文本
func (e *ExperienceExtractor) CombinedText(sections *types.SectionMap) string {
	combined := strings.TrimSpace(sections.Header()) + "\n\n" + strings.TrimSpace(e.ExperienceText(sections))
	return strings.TrimSpace(combined)
}

type experienceResponse struct {
	Name       string                  `json:"name"`
	Email      string                  `json:"email"`
	Phone      string                  `json:"phone"`
	Experience []types.ExperienceEntry `json:"experience"`
}

// Extract 文本为空时不调用模型，直接返回空结果。
// 调用或解析失败时返回错误，同时返回由正则从 HEADER 兜底得到的联系方式。
func (e *ExperienceExtractor) Extract(ctx context.Context, sections *types.SectionMap) (types.ExperienceResult, error) {
	result := types.ExperienceResult{Experience: []types.ExperienceEntry{}}

	combined := e.CombinedText(sections)
	if combined == "" {
		return result, nil
	}

	fallback := ContactFromText(sections.Header())

	raw, err := e.client.Call(ctx, "extract_experience",
		experienceSystemPrompt,
		fmt.Sprintf(experienceUserPrompt, combined),
		model.WithTemperature(e.temperature),
	)
	if err != nil {
		result.ContactInfo = fallback
		return result, err
	}

	var resp experienceResponse
	if err := DecodeJSONObject(raw, &resp); err != nil {
		e.logger.Printf("[extract_experience] 无法解析模型输出: %v", err)
		result.ContactInfo = fallback
		return result, types.NewContractError("extract_experience", "经历解析结果不是合法 JSON", err)
	}

	result.ContactInfo = mergeContact(types.ContactInfo{
		Name:  strings.TrimSpace(resp.Name),
		Email: strings.TrimSpace(resp.Email),
		Phone: strings.TrimSpace(resp.Phone),
	}, fallback)
	if resp.Experience != nil {
		result.Experience = resp.Experience
	}
	for i := range result.Experience {
		if result.Experience[i].Responsibilities == nil {
			result.Experience[i].Responsibilities = []string{}
		}
	}
	return result, nil
}

// ContactFromText 正则兜底：邮箱、电话、首个不含数字和 @ 的非空行作为姓名
func ContactFromText(text string) types.ContactInfo {
	var c types.ContactInfo
	c.Email = emailPattern.FindString(text)
	if m := phonePattern.FindString(text); m != "" {
		c.Phone = strings.TrimSpace(m)
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, "@0123456789") {
			continue
		}
		c.Name = line
		break
	}
	return c
}

func mergeContact(primary, fallback types.ContactInfo) types.ContactInfo {
	if primary.Name == "" {
		primary.Name = fallback.Name
	}
	if primary.Email == "" {
		primary.Email = fallback.Email
	}
	if primary.Phone == "" {
		primary.Phone = fallback.Phone
	}
	return primary
}
