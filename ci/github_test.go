package ci

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colbylwilliams/devbox-images/builder"
	"github.com/colbylwilliams/devbox-images/image"
)

func resolved(name string, build bool) *image.ResolvedImage {
	return &image.ResolvedImage{
		ImageDefinition: image.ImageDefinition{
			Name:      name,
			Publisher: "Contoso",
			Offer:     "DevBox",
			SKU:       name,
			Version:   "1.0.0",
			OS:        image.Windows,
			Builder:   image.BuilderLocal,
		},
		BuildNeeded:       build,
		NextVersion:       "1.0.1",
		ResourceGroupName: "gal1-" + name + "-202401010000",
	}
}

func readLines(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		k, v, ok := strings.Cut(line, "=")
		require.True(t, ok, line)
		out[k] = v
	}
	return out
}

func TestWriteOutputs(t *testing.T) {
	tests := []struct {
		name      string
		images    []*image.ResolvedImage
		wantNames []string
		wantBuild string
	}{
		{
			name:      "only build-needed images are included",
			images:    []*image.ResolvedImage{resolved("vscode", true), resolved("java", false), resolved("python", true)},
			wantNames: []string{"vscode", "python"},
			wantBuild: "true",
		},
		{
			name:      "nothing to build",
			images:    []*image.ResolvedImage{resolved("java", false)},
			wantNames: []string{},
			wantBuild: "false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "output")
			gh := &GitHub{OutputPath: path}
			require.NoError(t, gh.WriteOutputs(tt.images))

			lines := readLines(t, path)
			assert.Equal(t, tt.wantBuild, lines[OutputBuild])

			var matrix struct {
				Include []map[string]any `json:"include"`
			}
			require.NoError(t, json.Unmarshal([]byte(lines[OutputImages]), &matrix))
			names := []string{}
			for _, entry := range matrix.Include {
				names = append(names, entry["name"].(string))
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestWriteOutputs_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(path, []byte("existing=1\n"), 0o644))

	gh := &GitHub{OutputPath: path}
	require.NoError(t, gh.WriteOutputs([]*image.ResolvedImage{resolved("vscode", true)}))

	lines := readLines(t, path)
	assert.Equal(t, "1", lines["existing"])
	assert.Equal(t, "true", lines[OutputBuild])
}

func TestWriteOutputs_Disabled(t *testing.T) {
	gh := &GitHub{}
	assert.NoError(t, gh.WriteOutputs([]*image.ResolvedImage{resolved("vscode", true)}))
	assert.NoError(t, gh.WriteSummary(nil, nil))
}

func TestSummary(t *testing.T) {
	images := []*image.ResolvedImage{resolved("vscode", true), resolved("java", false)}
	report := &builder.BuildReport{Outcomes: []builder.Outcome{
		{Image: "vscode", Status: builder.StatusSucceeded},
		{Image: "java", Status: builder.StatusSkipped},
	}}

	got := Summary(images, report)
	assert.True(t, strings.HasPrefix(got, SummaryHeading+"\n\n"))
	assert.Contains(t, got, "| Name | Version | Publisher | Offer | SKU | OS | Resource Group | Status |")
	assert.Contains(t, got, "| vscode | 1.0.1 | Contoso | DevBox | vscode | windows | gal1-vscode-202401010000 | succeeded |")
	assert.NotContains(t, got, "| java |")

	plain := Summary(images, nil)
	assert.Contains(t, plain, "| vscode | 1.0.1 | Contoso | DevBox | vscode | windows | gal1-vscode-202401010000 |  |")

	assert.Equal(t, SummaryEmptyHeading+"\n\n", Summary([]*image.ResolvedImage{resolved("java", false)}, nil))
}

func TestSummary_EscapesPipes(t *testing.T) {
	img := resolved("vscode", true)
	img.Publisher = "A|B"
	assert.Contains(t, Summary([]*image.ResolvedImage{img}, nil), `| A\|B |`)
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	gh := &GitHub{SummaryPath: path}
	require.NoError(t, gh.WriteSummary([]*image.ResolvedImage{resolved("vscode", true)}, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| vscode |")
}

func TestNewGitHubWritesCommandsToStderr(t *testing.T) {
	gh := NewGitHub(true, "out", "summary")
	assert.Same(t, os.Stderr, gh.Out)
	assert.True(t, gh.Enabled)
	assert.Equal(t, "out", gh.OutputPath)
	assert.Equal(t, "summary", gh.SummaryPath)
}

func TestWorkflowCommands(t *testing.T) {
	report := &builder.BuildReport{Outcomes: []builder.Outcome{
		{Image: "vscode", Status: builder.StatusFailed, ErrorDetail: "packer build exited with code 1:\nboom 100%"},
		{Image: "java", Status: builder.StatusSucceeded},
	}}

	var buf bytes.Buffer
	gh := &GitHub{Enabled: true, Out: &buf}
	gh.Group("Building vscode")
	gh.EndGroup()
	gh.Annotate(report)

	assert.Equal(t,
		"::group::Building vscode\n::endgroup::\n::error title=vscode::packer build exited with code 1:%0Aboom 100%25\n",
		buf.String())

	buf.Reset()
	off := &GitHub{Out: &buf}
	off.Group("x")
	off.EndGroup()
	off.Annotate(report)
	assert.Empty(t, buf.String())
}
