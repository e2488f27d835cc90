package parser

import (
	"strings"

	"resume-screener/internal/types"
)

// DefaultProjectKeys 项目类标题，按优先级排列
var DefaultProjectKeys = []string{
	"PROJECTS", "PERSONAL PROJECTS", "TECHNICAL PROJECTS", "RESEARCH PROJECTS", "RESEARCH EXPERIENCE",
	"PROJECTS UNDERTAKEN", "PROJECT EXPERIENCE", "PROJECTS EXPERIENCE", "PROJECTS AND ACTIVITIES",
	"PROJECTS & ACTIVITIES", "ACADEMIC PROJECTS",

	"ACADEMIC RESEARCH PROJECTS", "RESEARCH WORK", "RESEARCH INITIATIVES", "SCIENTIFIC PROJECTS",
	"THESIS PROJECT", "DISSERTATION PROJECT", "CAPSTONE PROJECT", "FINAL YEAR PROJECT", "GRADUATION PROJECT",

	"WORK PROJECTS", "PROFESSIONAL PROJECTS", "INDUSTRY PROJECTS", "CLIENT PROJECTS", "CONSULTING PROJECTS",
	"FREELANCE PROJECTS", "CONTRACT PROJECTS", "ENGINEERING PROJECTS", "DEVELOPMENT PROJECTS",

	"SOFTWARE PROJECTS", "CODING PROJECTS", "PROGRAMMING PROJECTS", "MACHINE LEARNING PROJECTS", "AI PROJECTS",
	"DATA PROJECTS", "ANALYTICS PROJECTS", "BUSINESS INTELLIGENCE PROJECTS", "CLOUD PROJECTS", "DEVOPS PROJECTS",
	"CYBERSECURITY PROJECTS", "DATA ANALYTICS PROJECTS", "DATA SCIENCE PROJECTS", "DATA ENGINEERING PROJECTS",
	"DATA ANALYTICS PROJECTS UNDERTAKEN", "DATA ANALYSIS PROJECTS UNDERTAKEN",
	"DATA SCIENTIST PROJECTS UNDERTAKEN", "DATA SCIENCE PROJECTS UNDERTAKEN",
	"DATA ENGINEERING PROJECTS UNDERTAKEN", "DATA ENGINEER PROJECTS UNDERTAKEN",

	"SELECTED PROJECTS", "KEY PROJECTS", "MAJOR PROJECTS", "NOTABLE PROJECTS", "RECENT PROJECTS", "PAST PROJECTS",
	"COMPLETED PROJECTS", "ONGOING PROJECTS", "SIDE PROJECTS", "OPEN SOURCE PROJECTS", "VOLUNTEER PROJECTS",
	"TEAM PROJECTS", "INDIVIDUAL PROJECTS", "GROUP PROJECTS", "COLLABORATIVE PROJECTS",
}

// ProjectsExtractor 每个命中的项目章节整体作为一条
type ProjectsExtractor struct {
	labels []string
}

// NewProjectsExtractor 创建项目经历提取器
func NewProjectsExtractor(catalog *SectionCatalog, keys ...string) *ProjectsExtractor {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if len(keys) == 0 {
		keys = DefaultProjectKeys
	}
	return &ProjectsExtractor{labels: catalog.CanonicalAll(keys)}
}

// Extract 章节正文不拆分，原样保留；相同正文只保留一份
func (e *ProjectsExtractor) Extract(sections *types.SectionMap) []string {
	projects := []string{}
	seen := make(map[string]struct{})
	for _, label := range e.labels {
		body, ok := sections.Get(label)
		if !ok {
			continue
		}
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		if _, dup := seen[body]; dup {
			continue
		}
		seen[body] = struct{}{}
		projects = append(projects, body)
	}
	return projects
}
