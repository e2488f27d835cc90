package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"resume-screener/internal/types"
)

// DefaultSkillKeys 技能类标题，按优先级排列
var DefaultSkillKeys = []string{
	"KEY COMPETENCIES", "SKILLS", "TECHNICAL SKILLS", "CORE COMPETENCIES",
	"KEY SKILLS", "TECHNOLOGIES", "TOOLS & TECHNOLOGIES", "SOFT SKILLS",
	"HARD SKILLS", "KEY SKILLS & TECHNOLOGIES", "TECHNICAL EXPERTISE",
	"AREAS OF EXPERTISE",

	"FRONTEND SKILLS", "FRONT-END SKILLS", "FRONT END SKILLS",
	"BACKEND SKILLS", "BACK-END SKILLS", "BACK END SKILLS",
	"FULL STACK SKILLS", "FULL-STACK SKILLS",
	"MOBILE SKILLS", "DEVOPS SKILLS", "CLOUD SKILLS",

	"PROGRAMMING LANGUAGES", "FRAMEWORKS", "LIBRARIES",
	"SOFTWARE SKILLS", "PROFESSIONAL SKILLS",
	"TECH STACK", "TECHNICAL KNOWLEDGE", "CORE SKILLS",

	"PRIMARY SKILLS", "SECONDARY SKILLS", "ADDITIONAL SKILLS",
	"OTHER SKILLS", "RELATED SKILLS",
}

// skillDelimiters 换行、项目符号、逗号、分号
var skillDelimiters = regexp.MustCompile(`[\n●•,;]`)

// SkillExtractor 从技能类章节提取技能列表
type SkillExtractor struct {
	labels []string
}

// NewSkillExtractor 创建技能提取器；keys 为空时使用 DefaultSkillKeys
func NewSkillExtractor(catalog *SectionCatalog, keys ...string) *SkillExtractor {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if len(keys) == 0 {
		keys = DefaultSkillKeys
	}
	return &SkillExtractor{labels: catalog.CanonicalAll(keys)}
}

// Extract 按优先级收集技能条目，保持首次出现顺序并去重
func (e *SkillExtractor) Extract(sections *types.SectionMap) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, label := range e.labels {
		body, ok := sections.Get(label)
		if !ok {
			continue
		}
		for _, token := range skillDelimiters.Split(body, -1) {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}
	return out
}

// ExtractAndClean Extract 之后 CleanSkills
func (e *SkillExtractor) ExtractAndClean(sections *types.SectionMap) []string {
	return CleanSkills(e.Extract(sections))
}

// CleanSkills 清洗技能：去除不可打印字符，"标签: a, b" 展开为 a、b，统一小写。
// 返回排序去重后的结果，多次调用结果不变。
func CleanSkills(raw []string) []string {
	set := make(map[string]struct{})
	for _, item := range raw {
		for _, skill := range cleanSkillItem(item) {
			set[skill] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for skill := range set {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}

func cleanSkillItem(item string) []string {
	item = strings.TrimSpace(strings.Map(keepSkillRune, item))
	if item == "" {
		return nil
	}
	idx := strings.Index(item, ":")
	if idx < 0 {
		return []string{strings.ToLower(item)}
	}
	var out []string
	for _, part := range strings.Split(item[idx+1:], ",") {
		// 子项中仍可能带冒号（"a: b: c"），递归展开
		out = append(out, cleanSkillItem(part)...)
	}
	return out
}

func keepSkillRune(r rune) rune {
	if unicode.IsPrint(r) || strings.ContainsRune("/.-+", r) {
		return r
	}
	return -1
}
