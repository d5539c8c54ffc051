package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	candidates := []string{"vscode", "office", "visualstudio", "intellij"}

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "subsequence", input: "vscod", want: []string{"vscode"}},
		{name: "transposition", input: "offcie", want: []string{"office"}},
		{name: "case insensitive", input: "VSCODE", want: []string{"vscode"}},
		{name: "nothing close", input: "zzzzzzzz", want: []string{}},
		{name: "empty input", input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(tt.input, candidates))
		})
	}
}

func TestSuggest_Limit(t *testing.T) {
	got := Suggest("a", []string{"a1", "a2", "a3", "a4", "a5"})
	assert.Len(t, got, maxSuggestions)
}
