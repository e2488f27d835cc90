package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```JSON {\"a\":1}```":    `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		"\uFEFF  {\"a\":1}  ":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFences(in), "input %q", in)
	}
}

func TestExtractJSONObject(t *testing.T) {
	got, ok := ExtractJSONObject("Sure! Here you go:\n{\"a\":{\"b\":\"}\"},\"c\":[1,2]} trailing {\"x\":1}")
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":"}"},"c":[1,2]}`, got)

	got, ok = ExtractJSONObject(`{"s":"escaped \" quote { brace"}`)
	require.True(t, ok)
	assert.Equal(t, `{"s":"escaped \" quote { brace"}`, got)

	_, ok = ExtractJSONObject("no json here")
	assert.False(t, ok)

	_, ok = ExtractJSONObject(`{"unterminated": 1`)
	assert.False(t, ok)
}

func TestDecodeJSONObject_FencedEqualsPlain(t *testing.T) {
	type score struct {
		EducationScore float64 `json:"education_score"`
	}
	var fenced, plain score
	require.NoError(t, DecodeJSONObject("```json\n{\"education_score\":0.5}\n```", &fenced))
	require.NoError(t, DecodeJSONObject(`{"education_score":0.5}`, &plain))
	assert.Equal(t, plain, fenced)
	assert.Equal(t, 0.5, fenced.EducationScore)
}

func TestDecodeJSONObject_RepairsUnescapedQuotes(t *testing.T) {
	var v struct {
		Summary string `json:"summary"`
	}
	require.NoError(t, DecodeJSONObject(`{"summary": "built the "core" engine"}`, &v))
	assert.Equal(t, `built the "core" engine`, v.Summary)
}

func TestDecodeJSONObject_Errors(t *testing.T) {
	var v map[string]interface{}
	assert.Error(t, DecodeJSONObject("plain text", &v))
	assert.Error(t, DecodeJSONObject(`{"a": tru}`, &v))
}
