package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/sarcasm/sarcasm"
	"github.com/zero-day-ai/sarcasm/tool"
)

func classicTools(t *testing.T) []tool.Tool {
	t.Helper()
	tools, err := sarcasm.ProfileClassic.Tools(sarcasm.Fixed(0))
	require.NoError(t, err)
	return tools
}

func toolNames(tools []tool.Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name()
	}
	return out
}

func TestFilterTools(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{
			name: "empty keeps everything",
			expr: "",
			want: []string{"sarcastic_motivation", "answer_question_badly", "generate_passive_aggressive_tip", "roast_code_quality", "search", "fetch"},
		},
		{
			name: "exclude by name",
			expr: `name != "roast_code_quality"`,
			want: []string{"sarcastic_motivation", "answer_question_badly", "generate_passive_aggressive_tip", "search", "fetch"},
		},
		{
			name: "by tag",
			expr: `"catalog" in tags`,
			want: []string{"search", "fetch"},
		},
		{
			name: "by title",
			expr: `title.startsWith("Bad")`,
			want: []string{"answer_question_badly"},
		},
		{
			name: "nothing",
			expr: `false`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterTools(tt.expr, classicTools(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, toolNames(got))
		})
	}
}

func TestNewFilter_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"syntax", `name ==`},
		{"unknown variable", `owner == "me"`},
		{"non-bool", `name + "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilter(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestFilter_UntaggedTool(t *testing.T) {
	f, err := NewFilter(`size(tags) == 0`)
	require.NoError(t, err)
	assert.Equal(t, `size(tags) == 0`, f.String())

	ok, err := f.Match(stubTool{name: "x", desc: "d"})
	require.NoError(t, err)
	assert.True(t, ok)
}
