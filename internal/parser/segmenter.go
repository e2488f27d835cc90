package parser

import (
	"strings"

	"resume-screener/internal/types"
)

// Segmenter 将纯文本切分为 章节标签 -> 正文
type Segmenter struct {
	catalog *SectionCatalog
}

// SegmenterOption 分段器配置项
type SegmenterOption func(*Segmenter)

// WithCatalog 使用自定义标题目录
func WithCatalog(catalog *SectionCatalog) SegmenterOption {
	return func(s *Segmenter) {
		if catalog != nil {
			s.catalog = catalog
		}
	}
}

// NewSegmenter 创建分段器，默认使用内置目录
func NewSegmenter(options ...SegmenterOption) *Segmenter {
	s := &Segmenter{catalog: DefaultCatalog()}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Catalog 返回分段器使用的目录
func (s *Segmenter) Catalog() *SectionCatalog {
	return s.catalog
}

// Segment 逐行扫描文本。空行丢弃；整行命中目录别名即视为新章节标题。
// 标题前的内容归入 HEADER。同一标签再次出现时正文追加在后。不会失败。
func (s *Segmenter) Segment(text string) *types.SectionMap {
	sections := types.NewSectionMap()
	current := types.HeaderLabel
	var buf []string

	flush := func() {
		if len(buf) == 0 {
			return
		}
		sections.Append(current, strings.Join(buf, "\n"))
		buf = buf[:0]
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if label, ok := s.catalog.Match(line); ok {
			flush()
			current = label
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return sections
}
