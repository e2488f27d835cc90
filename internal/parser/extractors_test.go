package parser

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkillExtractor_ExtractPreservesOrderAndDedupes(t *testing.T) {
	sections := NewSegmenter().Segment("Jane\nSkills\nGo, Python; Go\n● Docker\nTechnical Skills\nPython\nSQL")
	raw := NewSkillExtractor(nil).Extract(sections)
	assert.Equal(t, []string{"Go", "Python", "Docker", "SQL"}, raw)
}

func TestSkillExtractor_PriorityOrder(t *testing.T) {
	// KEY COMPETENCIES 在 SKILLS 之前
	sections := NewSegmenter().Segment("Jane\nSkills\nGo\nKey Competencies\nLeadership")
	raw := NewSkillExtractor(nil).Extract(sections)
	assert.Equal(t, []string{"Leadership", "Go"}, raw)
}

func TestSkillExtractor_NoSkillSection(t *testing.T) {
	sections := NewSegmenter().Segment("Jane\nEducation\nBSc")
	assert.Empty(t, NewSkillExtractor(nil).Extract(sections))
	assert.Empty(t, NewSkillExtractor(nil).ExtractAndClean(sections))
}

func TestCleanSkills_LabelPrefixed(t *testing.T) {
	out := CleanSkills([]string{"Languages: Python, Go", "Docker", "docker", "  C++ "})
	assert.Equal(t, []string{"c++", "docker", "go", "python"}, out)
}

func TestCleanSkills_StripsNonPrintable(t *testing.T) {
	out := CleanSkills([]string{"Node.js\u0000", "CI/CD\t"})
	assert.Equal(t, []string{"ci/cd", "node.js"}, out)
}

func TestCleanSkills_Idempotent(t *testing.T) {
	inputs := [][]string{
		{"Languages: Python, Go", "Tools: Git: advanced", "SQL", "Cloud:AWS,GCP"},
		{"", "  ", ":", "A:B:C"},
		{"Kubernetes", "kubernetes", "KUBERNETES"},
	}
	for _, in := range inputs {
		once := CleanSkills(in)
		twice := CleanSkills(once)
		assert.Equal(t, once, twice)
		assert.True(t, sort.StringsAreSorted(once))
		seen := map[string]bool{}
		for _, s := range once {
			assert.False(t, seen[s], "duplicate %q", s)
			seen[s] = true
		}
	}
}

func TestEducationExtractor_FirstMatchingSection(t *testing.T) {
	sections := NewSegmenter().Segment("Jane\nAcademic Background\nMSc AI\nEducation\nBSc CS\n  2015 - 2019  ")
	// EDUCATION 优先于 ACADEMIC BACKGROUND
	assert.Equal(t, []string{"BSc CS", "2015 - 2019"}, NewEducationExtractor(nil).Extract(sections))
}

func TestEducationExtractor_Missing(t *testing.T) {
	sections := NewSegmenter().Segment("Jane\nSkills\nGo")
	out := NewEducationExtractor(nil).Extract(sections)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestProjectsExtractor_KeepsBodiesVerbatim(t *testing.T) {
	text := "Jane\nProjects\nLog shipper\n- written in Go\nSide Projects\nChess engine\nResearch Experience\nGraph mining"
	out := NewProjectsExtractor(nil).Extract(NewSegmenter().Segment(text))
	assert.Equal(t, []string{"Log shipper\n- written in Go", "Graph mining", "Chess engine"}, out)
}

func TestProjectsExtractor_DedupesIdenticalBodies(t *testing.T) {
	text := "Jane\nProjects\nSame body\nAcademic Projects\nSame body"
	out := NewProjectsExtractor(nil).Extract(NewSegmenter().Segment(text))
	assert.Equal(t, []string{"Same body"}, out)
}

func TestProjectsExtractor_None(t *testing.T) {
	out := NewProjectsExtractor(nil).Extract(NewSegmenter().Segment("Jane"))
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
