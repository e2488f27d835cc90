package parser

import (
	"strings"

	"resume-screener/internal/types"
)

// DefaultEducationKeys 教育类标题，按优先级排列
var DefaultEducationKeys = []string{
	"EDUCATION", "ACADEMIC BACKGROUND", "ACADEMIC QUALIFICATIONS",
	"EDUCATIONAL QUALIFICATIONS", "EDUCATIONAL BACKGROUND",
	"EDUCATION AND CERTIFICATION", "ACADEMIC QUALIFICATION",
	"EDUCATIONAL QUALIFICATION", "EDUCATION AND CERTIFICATIONS",
	"EDUCATION & CERTIFICATIONS", "EDUCATION & CERTIFICATION",
}

// EducationExtractor 取第一个命中的教育章节，按行拆分
type EducationExtractor struct {
	labels []string
}

// NewEducationExtractor 创建教育经历提取器
func NewEducationExtractor(catalog *SectionCatalog, keys ...string) *EducationExtractor {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if len(keys) == 0 {
		keys = DefaultEducationKeys
	}
	return &EducationExtractor{labels: catalog.CanonicalAll(keys)}
}

// Extract 没有教育章节时返回空切片
func (e *EducationExtractor) Extract(sections *types.SectionMap) []string {
	for _, label := range e.labels {
		body, ok := sections.Get(label)
		if !ok {
			continue
		}
		return splitNonEmptyLines(body)
	}
	return []string{}
}

func splitNonEmptyLines(body string) []string {
	lines := []string{}
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
