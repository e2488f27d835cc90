package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"resume-screener/internal/types"
	"resume-screener/pkg/agent"

	"github.com/cloudwego/eino/components/model"
)

const jdSystemPrompt = `You are an expert JD parser. Extract required fields in valid JSON format.
Return ONLY the JSON object without any additional text or explanation.
Use this structure:
{
    "skills": [],
    "responsibilities": [],
    "experience_requirements": [],
    "education_requirements": []
}`

const jdUserPrompt = "Extract information from this job description:\n%s"

// invalidJSONMessage 岗位描述解析失败时哨兵结果中的 error 字段
const invalidJSONMessage = "Invalid JSON response"

// JDNormalizer 将岗位描述文本归一化为四个数组字段
type JDNormalizer struct {
	client      *EvaluatorClient
	temperature float32
	maxTokens   int
	logger      *log.Logger
}

// JDOption 配置选项
type JDOption func(*JDNormalizer)

// WithJDTemperature 设置采样温度
func WithJDTemperature(t float32) JDOption {
	return func(n *JDNormalizer) {
		n.temperature = t
	}
}

// WithJDMaxTokens 设置最大输出 token
func WithJDMaxTokens(max int) JDOption {
	return func(n *JDNormalizer) {
		if max > 0 {
			n.maxTokens = max
		}
	}
}

// WithJDLogger 设置日志
func WithJDLogger(l *log.Logger) JDOption {
	return func(n *JDNormalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewJDNormalizer 创建岗位描述归一化器
func NewJDNormalizer(client *EvaluatorClient, opts ...JDOption) *JDNormalizer {
	n := &JDNormalizer{
		client:      client,
		temperature: 0.3,
		maxTokens:   1024,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize 调用失败返回传输错误；输出无法解析时返回 *types.JDNormalizationError，
// 其中保留模型原始输出。两种情况调用方都应终止本次请求。
func (n *JDNormalizer) Normalize(ctx context.Context, jdText string) (*types.JobDescriptionRecord, error) {
	if strings.TrimSpace(jdText) == "" {
		return nil, types.ErrEmptyJobDescription
	}

	raw, err := n.client.Call(ctx, "normalize_jd",
		jdSystemPrompt,
		fmt.Sprintf(jdUserPrompt, jdText),
		model.WithTemperature(n.temperature),
		model.WithMaxTokens(n.maxTokens),
		agent.WithJSONResponse(),
	)
	if err != nil {
		return nil, err
	}

	record, err := parseJDResponse(raw)
	if err != nil {
		n.logger.Printf("[normalize_jd] 岗位描述解析失败: %v", err)
		return nil, &types.JDNormalizationError{
			Message:   invalidJSONMessage,
			RawOutput: raw,
			Cause:     err,
		}
	}
	n.logger.Printf("[normalize_jd] 技能 %d 项, 职责 %d 项, 经验要求 %d 项, 学历要求 %d 项",
		len(record.Skills), len(record.Responsibilities), len(record.ExperienceRequirements), len(record.EducationRequirements))
	return record, nil
}

// parseJDResponse 四个字段都可缺省；字段值可以是字符串数组，也可以是单个字符串
func parseJDResponse(raw string) (*types.JobDescriptionRecord, error) {
	var fields map[string]json.RawMessage
	if err := DecodeJSONObject(raw, &fields); err != nil {
		return nil, err
	}

	record := &types.JobDescriptionRecord{}
	var err error
	if record.Skills, err = StringList(fields["skills"]); err != nil {
		return nil, fmt.Errorf("skills: %w", err)
	}
	if record.Responsibilities, err = StringList(fields["responsibilities"]); err != nil {
		return nil, fmt.Errorf("responsibilities: %w", err)
	}
	if record.ExperienceRequirements, err = StringList(fields["experience_requirements"]); err != nil {
		return nil, fmt.Errorf("experience_requirements: %w", err)
	}
	if record.EducationRequirements, err = StringList(fields["education_requirements"]); err != nil {
		return nil, fmt.Errorf("education_requirements: %w", err)
	}
	record.Normalize()
	return record, nil
}

// StringList 解析字符串数组字段；兼容单个字符串、null 和混合类型数组
func StringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return compactStrings(list), nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return compactStrings([]string{single}), nil
	}
	var mixed []interface{}
	if err := json.Unmarshal(raw, &mixed); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(mixed))
	for _, v := range mixed {
		switch val := v.(type) {
		case string:
			out = append(out, val)
		case nil:
		default:
			b, _ := json.Marshal(val)
			out = append(out, string(b))
		}
	}
	return compactStrings(out), nil
}

func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
