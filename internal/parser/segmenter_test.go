package parser

import (
	"strings"
	"testing"

	"resume-screener/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
jane.doe@example.com | +1 555-123-4567

Summary
Backend engineer with 6 years of experience.

TECHNICAL SKILLS:
Languages: Python, Go
Docker • Kubernetes; PostgreSQL

Work Experience -
Senior Engineer, Acme Corp (2019 - 2024)
Built payment services.

Education
B.Sc. Computer Science, State University
GPA 3.8

Projects
Open-source log shipper written in Go.
`

func TestSegment_SplitsKnownSections(t *testing.T) {
	sections := NewSegmenter().Segment(sampleResume)

	assert.Equal(t, []string{"HEADER", "SUMMARY", "TECHNICAL SKILLS", "WORK EXPERIENCE", "EDUCATION", "PROJECTS"}, sections.Labels())
	assert.Equal(t, "Jane Doe\njane.doe@example.com | +1 555-123-4567", sections.Header())

	body, ok := sections.Get("TECHNICAL SKILLS")
	require.True(t, ok)
	assert.Equal(t, "Languages: Python, Go\nDocker • Kubernetes; PostgreSQL", body)

	body, ok = sections.Get("EDUCATION")
	require.True(t, ok)
	assert.Equal(t, "B.Sc. Computer Science, State University\nGPA 3.8", body)
}

func TestSegment_EmptyDocument(t *testing.T) {
	for _, text := range []string{"", "\n\n   \n"} {
		sections := NewSegmenter().Segment(text)
		assert.Equal(t, []string{types.HeaderLabel}, sections.Labels())
		assert.Equal(t, "", sections.Header())
	}
}

func TestSegment_NoHeadersKeepsEverythingInHeader(t *testing.T) {
	text := "Just some text\nwith two lines"
	sections := NewSegmenter().Segment(text)
	assert.Equal(t, 1, sections.Len())
	assert.Equal(t, text, sections.Header())
}

func TestSegment_HeaderVariants(t *testing.T) {
	variants := []string{"skills", "SKILLS:", "Skills -", "  Skills  :  ", "S K I L L S", "Skills—"}
	for _, v := range variants {
		sections := NewSegmenter().Segment("Name\n" + v + "\nGo")
		body, ok := sections.Get("SKILLS")
		assert.True(t, ok, "variant %q should start SKILLS", v)
		assert.Equal(t, "Go", body, "variant %q", v)
	}
}

func TestSegment_SubstringIsNotHeader(t *testing.T) {
	text := "Name\nMy skills include Go and Rust\nExperience with Kubernetes clusters"
	sections := NewSegmenter().Segment(text)
	assert.Equal(t, []string{types.HeaderLabel}, sections.Labels())
	assert.Contains(t, sections.Header(), "My skills include Go and Rust")
}

func TestSegment_EveryCatalogAliasIsBoundary(t *testing.T) {
	catalog := DefaultCatalog()
	seg := NewSegmenter(WithCatalog(catalog))
	require.GreaterOrEqual(t, catalog.AliasCount(), 100)

	for _, entry := range defaultCatalogEntries {
		for _, alias := range entry.Aliases {
			for _, line := range []string{alias, strings.ToLower(alias) + ":", alias + " -"} {
				sections := seg.Segment("header line\n" + line + "\nbody text")
				label := catalog.Canonical(alias)
				body, ok := sections.Get(label)
				require.True(t, ok, "alias line %q should map to %q", line, label)
				assert.Equal(t, "body text", body)
			}
		}
	}
}

func TestSegment_RepeatedHeaderAppends(t *testing.T) {
	text := "Skills\nGo\nEducation\nBSc\nSkills\nRust"
	sections := NewSegmenter().Segment(text)
	body, _ := sections.Get("SKILLS")
	assert.Equal(t, "Go\nRust", body)
	assert.Equal(t, []string{"HEADER", "SKILLS", "EDUCATION"}, sections.Labels())
}

func TestSegment_EmptySectionIsSkipped(t *testing.T) {
	sections := NewSegmenter().Segment("Name\nSkills\nEducation\nBSc")
	assert.False(t, sections.Has("SKILLS"))
	assert.True(t, sections.Has("EDUCATION"))
}

func TestCatalog_FirstAliasWinsOnCollision(t *testing.T) {
	catalog := NewSectionCatalog([]CatalogEntry{
		{Category: types.CategorySkills, Aliases: []string{"FRONT END", "FRONTEND"}},
	})
	label, ok := catalog.Match("frontend")
	require.True(t, ok)
	assert.Equal(t, "FRONT END", label)
	assert.Equal(t, 2, catalog.AliasCount())

	cat, ok := catalog.Category("FRONT END")
	require.True(t, ok)
	assert.Equal(t, types.CategorySkills, cat)
}

func TestCatalog_ExtractorKeysAreReachable(t *testing.T) {
	catalog := DefaultCatalog()
	groups := [][]string{DefaultSkillKeys, DefaultEducationKeys, DefaultProjectKeys}
	for _, g := range DefaultExperiencePriority {
		groups = append(groups, g)
	}
	for _, keys := range groups {
		for _, key := range keys {
			_, ok := catalog.Match(key)
			assert.True(t, ok, "extractor key %q is not in the catalog", key)
		}
	}
}

func TestSectionMap_String(t *testing.T) {
	sections := NewSegmenter().Segment("Jane\nSkills\nGo")
	assert.Equal(t, "HEADER:\nJane\n\nSKILLS:\nGo", sections.String())
}
