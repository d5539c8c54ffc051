package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidateBuildOptions(t *testing.T) {
	known := []string{"vscode", "java", "python", "dotnet"}

	tests := []struct {
		name    string
		opts    BuildCLIOptions
		wantErr string
	}{
		{
			name: "all images",
			opts: BuildCLIOptions{Suffix: "202401010000", Concurrency: 4},
		},
		{
			name: "named images",
			opts: BuildCLIOptions{Images: []string{"vscode", "java"}, Suffix: "run-42", Concurrency: 1},
		},
		{
			name: "changed paths",
			opts: BuildCLIOptions{Changes: []string{"images/vscode/image.yaml"}, Suffix: "x", Concurrency: 4},
		},
		{
			name:    "unknown image with suggestion",
			opts:    BuildCLIOptions{Images: []string{"vscod"}, Suffix: "x", Concurrency: 4},
			wantErr: `unknown image "vscod" (did you mean vscode`,
		},
		{
			name:    "empty image name",
			opts:    BuildCLIOptions{Images: []string{" "}, Suffix: "x", Concurrency: 4},
			wantErr: "image name must not be empty",
		},
		{
			name:    "images and changes",
			opts:    BuildCLIOptions{Images: []string{"java"}, Changes: []string{"scripts/a.sh"}, Suffix: "x", Concurrency: 4},
			wantErr: "--images cannot be combined",
		},
		{
			name:    "images and changes-from",
			opts:    BuildCLIOptions{Images: []string{"java"}, ChangesFrom: "origin/main", Suffix: "x", Concurrency: 4},
			wantErr: "--images cannot be combined",
		},
		{
			name:    "bad suffix",
			opts:    BuildCLIOptions{Suffix: "a b", Concurrency: 4},
			wantErr: "invalid suffix",
		},
		{
			name:    "zero concurrency",
			opts:    BuildCLIOptions{Suffix: "x", Concurrency: 0},
			wantErr: "--concurrency must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidator(known).ValidateBuildOptions(tt.opts)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidator_NoKnownImages(t *testing.T) {
	err := NewValidator(nil).ValidateBuildOptions(BuildCLIOptions{Images: []string{"anything"}, Suffix: "x", Concurrency: 1})
	assert.NoError(t, err)
}

func TestValidator_ValidateImagesOptions(t *testing.T) {
	v := NewValidator([]string{"vscode"})

	for _, format := range []string{"json", "table", "matrix"} {
		assert.NoError(t, v.ValidateImagesOptions(ImagesCLIOptions{Format: format}), format)
	}

	err := v.ValidateImagesOptions(ImagesCLIOptions{Format: "yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format: yaml")

	err = v.ValidateImagesOptions(ImagesCLIOptions{Images: []string{"nope"}, Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown image "nope"`)
}

func TestValidateSuffix(t *testing.T) {
	tests := []struct {
		suffix string
		valid  bool
	}{
		{"202401010000", true},
		{"pr-42", true},
		{"build_7", true},
		{"", false},
		{"-leading", false},
		{"has space", false},
		{"dots.not.allowed", false},
		{strings.Repeat("a", MaxSuffixLength), true},
		{strings.Repeat("a", MaxSuffixLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.suffix, func(t *testing.T) {
			err := ValidateSuffix(tt.suffix)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSelection_ByChanges(t *testing.T) {
	assert.False(t, Selection{}.ByChanges())
	assert.False(t, Selection{Images: []string{"a"}}.ByChanges())
	assert.True(t, Selection{Changes: []string{"a"}}.ByChanges())
	assert.True(t, Selection{ChangesFrom: "HEAD~1"}.ByChanges())
}
