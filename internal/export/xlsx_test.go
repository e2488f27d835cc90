package export

import (
	"bytes"
	"testing"
	"time"

	"resume-screener/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestShortlistXLSX(t *testing.T) {
	entries := []types.RankedEntry{
		{
			Name:             "Ann Lee",
			Email:            "ann@example.com",
			Phone:            "+1 555 0100",
			MatchPercent:     82.5,
			SkillsScore:      90,
			ExperienceScore:  80,
			EducationScore:   100,
			ProjectScore:     50,
			DomainMatchScore: 70,
			MissingSkills:    []string{"kafka", "k8s"},
			OriginalFileName: "ann.pdf",
			OriginalFileURL:  "/uploads/x_ann.pdf",
		},
		{
			Name:             "bad.docx",
			MatchPercent:     types.NaNPercent(),
			SkillsScore:      types.NaNPercent(),
			ExperienceScore:  types.NaNPercent(),
			EducationScore:   types.NaNPercent(),
			ProjectScore:     types.NaNPercent(),
			DomainMatchScore: types.NaNPercent(),
			MissingSkills:    []string{},
			OriginalFileName: "bad.docx",
			Error:            "transport: timeout",
		},
	}

	data, err := ShortlistXLSX(entries)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Rank", rows[0][0])
	assert.Equal(t, "Error", rows[0][len(rows[0])-1])

	assert.Equal(t, []string{
		"1", "Ann Lee", "ann@example.com", "+1 555 0100", "82.5",
		"90", "80", "100", "50", "70",
		"kafka, k8s", "ann.pdf", "/uploads/x_ann.pdf",
	}, rows[1])

	require.Len(t, rows[2], 14)
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "", rows[2][4], "missing percent is an empty cell")
	assert.Equal(t, "transport: timeout", rows[2][13])
}

func TestShortlistXLSX_Empty(t *testing.T) {
	data, err := ShortlistXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "shortlist_20240102_150405.xlsx", FileName(at))
}
