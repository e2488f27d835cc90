package parser

import (
	"strings"
	"unicode"

	"resume-screener/internal/types"
)

// CatalogEntry 一个类别及其标题别名（按优先级排列）
type CatalogEntry struct {
	Category types.SectionCategory
	Aliases  []string
}

// defaultCatalogEntries 简历章节标题目录，顺序即匹配优先级
var defaultCatalogEntries = []CatalogEntry{
	{Category: types.CategoryEducation, Aliases: []string{
		"EDUCATION", "ACADEMIC BACKGROUND", "ACADEMIC QUALIFICATIONS", "EDUCATIONAL QUALIFICATIONS",
		"EDUCATIONAL BACKGROUND", "EDUCATIONAL QUALIFICATION",
		"EDUCATION AND CERTIFICATION", "ACADEMIC QUALIFICATION", "EDUCATION AND CERTIFICATIONS",
		"EDUCATION & CERTIFICATIONS", "EDUCATION & CERTIFICATION",
	}},
	{Category: types.CategoryExperience, Aliases: []string{
		"EXPERIENCE", "WORK EXPERIENCE", "EMPLOYMENT HISTORY", "PROFESSIONAL EXPERIENCE", "JOB HISTORY", "JOB PROFILE",
		"RELEVANT EXPERIENCE", "CAREER HISTORY", "WORK HISTORY", "INDUSTRY EXPERIENCE", "FREELANCE EXPERIENCE",
		"INTERNSHIP EXPERIENCE", "INTERNSHIPS", "CO-OP EXPERIENCE", "RESEARCH EXPERIENCE", "RESEARCH POSITIONS",
		"CONTRACT WORK", "CAREER SUMMARY", "VOLUNTEER EXPERIENCE", "LEADERSHIP EXPERIENCE",
	}},
	{Category: types.CategorySkills, Aliases: []string{
		"SKILLS", "TECHNICAL SKILLS", "CORE COMPETENCIES", "KEY SKILLS", "TECHNOLOGIES", "TOOLS & TECHNOLOGIES",
		"SOFT SKILLS", "SOFTWARE SKILLS", "HARDWARE SKILLS", "KEY COMPETENCIES", "HARD SKILLS",
		"KEY SKILLS & TECHNOLOGIES", "FRONT END", "BACK END", "FRONTEND", "BACKEND", "TOOLS", "FRONT-END", "BACK-END",
		"SKILLS SUMMARY", "SKILLS AND ABILITIES", "SKILLS & ABILITIES",
		"TECHNICAL EXPERTISE", "AREAS OF EXPERTISE",
		"FRONTEND SKILLS", "FRONT-END SKILLS", "FRONT END SKILLS",
		"BACKEND SKILLS", "BACK-END SKILLS", "BACK END SKILLS",
		"FULL STACK SKILLS", "FULL-STACK SKILLS", "MOBILE SKILLS", "DEVOPS SKILLS", "CLOUD SKILLS",
		"PROGRAMMING LANGUAGES", "FRAMEWORKS", "LIBRARIES", "PROFESSIONAL SKILLS",
		"TECH STACK", "TECHNICAL KNOWLEDGE", "CORE SKILLS",
		"PRIMARY SKILLS", "SECONDARY SKILLS", "ADDITIONAL SKILLS", "OTHER SKILLS", "RELATED SKILLS",
	}},
	{Category: types.CategoryProjects, Aliases: []string{
		"PROJECTS", "PERSONAL PROJECTS", "TECHNICAL PROJECTS", "RESEARCH PROJECTS", "PROJECTS UNDERTAKEN",
		"PROJECT EXPERIENCE", "PROJECTS EXPERIENCE", "PROJECTS AND ACTIVITIES", "PROJECTS & ACTIVITIES",
		"ACADEMIC PROJECTS", "DATA ANALYTICS PROJECTS UNDERTAKEN", "DATA ANALYSIS PROJECTS UNDERTAKEN",
		"DATA SCIENTIST PROJECTS UNDERTAKEN", "DATA SCIENCE PROJECTS UNDERTAKEN", "DATA ENGINEERING PROJECTS UNDERTAKEN",
		"DATA ENGINEER PROJECTS UNDERTAKEN",
		"ACADEMIC RESEARCH PROJECTS", "RESEARCH WORK", "RESEARCH INITIATIVES", "SCIENTIFIC PROJECTS",
		"THESIS PROJECT", "DISSERTATION PROJECT", "CAPSTONE PROJECT", "FINAL YEAR PROJECT", "GRADUATION PROJECT",
		"WORK PROJECTS", "PROFESSIONAL PROJECTS", "INDUSTRY PROJECTS", "CLIENT PROJECTS", "CONSULTING PROJECTS",
		"FREELANCE PROJECTS", "CONTRACT PROJECTS", "ENGINEERING PROJECTS", "DEVELOPMENT PROJECTS",
		"SOFTWARE PROJECTS", "CODING PROJECTS", "PROGRAMMING PROJECTS", "MACHINE LEARNING PROJECTS", "AI PROJECTS",
		"DATA PROJECTS", "ANALYTICS PROJECTS", "BUSINESS INTELLIGENCE PROJECTS", "CLOUD PROJECTS", "DEVOPS PROJECTS",
		"CYBERSECURITY PROJECTS", "DATA ANALYTICS PROJECTS", "DATA SCIENCE PROJECTS", "DATA ENGINEERING PROJECTS",
		"SELECTED PROJECTS", "KEY PROJECTS", "MAJOR PROJECTS", "NOTABLE PROJECTS", "RECENT PROJECTS", "PAST PROJECTS",
		"COMPLETED PROJECTS", "ONGOING PROJECTS", "SIDE PROJECTS", "OPEN SOURCE PROJECTS", "VOLUNTEER PROJECTS",
		"TEAM PROJECTS", "INDIVIDUAL PROJECTS", "GROUP PROJECTS", "COLLABORATIVE PROJECTS",
	}},
	{Category: types.CategoryCertifications, Aliases: []string{
		"CERTIFICATION", "CERTIFICATIONS", "CERTIFICATES", "TRAINING", "COURSES", "PROFESSIONAL DEVELOPMENT",
		"COURSES AND CERTIFICATIONS", "COURSES & CERTIFICATIONS",
	}},
	{Category: types.CategoryAwards, Aliases: []string{
		"AWARDS", "ACHIEVEMENTS", "HONORS", "HONORS & AWARDS", "RECOGNITION", "AWARDS & ACHIEVEMENTS",
	}},
	{Category: types.CategorySummary, Aliases: []string{
		"SUMMARY", "PROFESSIONAL SUMMARY", "EXECUTIVE SUMMARY", "PROFILE", "PROFILE SUMMARY", "PERSONAL STATEMENT",
		"PERSONAL DETAILS", "CAREER OBJECTIVE", "CAREER OBJECTIVES",
	}},
	{Category: types.CategoryObjective, Aliases: []string{
		"OBJECTIVE", "PROFESSIONAL OBJECTIVE", "GOAL",
	}},
	{Category: types.CategoryMisc, Aliases: []string{
		"LANGUAGES", "PUBLICATIONS", "VOLUNTEERING", "INTERESTS", "HOBBIES", "REFERENCES", "EXTRACURRICULAR ACTIVITIES",
		"ADDITIONAL INFORMATION", "COMMUNITY SERVICE", "MILITARY SERVICE", "SPEAKING ENGAGEMENTS", "PRESENTATIONS",
		"PORTFOLIO", "PROFESSIONAL AFFILIATIONS", "MEMBERSHIPS", "PAPERS", "CONTACT INFORMATION", "PERSONAL INFORMATION",
		"BIOGRAPHY", "DECLARATION",
	}},
}

// SectionCatalog 标题别名查找表：归一化后的整行 -> 规范标签
type SectionCatalog struct {
	entries    []CatalogEntry
	index      map[string]string
	categories map[string]types.SectionCategory
	aliasCount int
}

// NewSectionCatalog 按给定顺序构建目录；归一化后相同的别名以先出现者为准
func NewSectionCatalog(entries []CatalogEntry) *SectionCatalog {
	c := &SectionCatalog{
		entries:    entries,
		index:      make(map[string]string),
		categories: make(map[string]types.SectionCategory),
	}
	for _, entry := range entries {
		for _, alias := range entry.Aliases {
			key := headerKey(alias)
			if key == "" {
				continue
			}
			c.aliasCount++
			if _, exists := c.index[key]; exists {
				continue
			}
			label := canonicalLabel(alias)
			c.index[key] = label
			if _, ok := c.categories[label]; !ok {
				c.categories[label] = entry.Category
			}
		}
	}
	return c
}

var defaultCatalog = NewSectionCatalog(defaultCatalogEntries)

// DefaultCatalog 返回内置目录（只读共享）
func DefaultCatalog() *SectionCatalog {
	return defaultCatalog
}

// Match 判断一整行是否为章节标题，返回规范标签
func (c *SectionCatalog) Match(line string) (string, bool) {
	key := headerKey(line)
	if key == "" {
		return "", false
	}
	label, ok := c.index[key]
	return label, ok
}

// Canonical 返回别名对应的规范标签；未收录的别名按同样规则大写化
func (c *SectionCatalog) Canonical(alias string) string {
	if label, ok := c.Match(alias); ok {
		return label
	}
	return canonicalLabel(alias)
}

// CanonicalAll 将别名列表映射为去重后的规范标签，保持顺序
func (c *SectionCatalog) CanonicalAll(aliases []string) []string {
	seen := make(map[string]struct{}, len(aliases))
	labels := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		label := c.Canonical(alias)
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// Category 返回标签所属类别
func (c *SectionCatalog) Category(label string) (types.SectionCategory, bool) {
	cat, ok := c.categories[label]
	return cat, ok
}

// AliasCount 目录中别名总数
func (c *SectionCatalog) AliasCount() int {
	return c.aliasCount
}

// headerTrailing 标题末尾允许出现的冒号、横线
const headerTrailing = ":-–— \t"

// headerKey 归一化一行文本：去掉首尾空白和末尾冒号/横线，转大写，并去掉所有空白。
// 去空白后 "S K I L L S" 与 "SKILLS" 等价。
func headerKey(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimRight(s, headerTrailing)
	if s == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}

// canonicalLabel 大写并压缩空白
func canonicalLabel(alias string) string {
	return strings.Join(strings.Fields(strings.ToUpper(alias)), " ")
}
