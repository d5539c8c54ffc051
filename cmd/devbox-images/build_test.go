/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colbylwilliams/devbox-images/builder"
	"github.com/colbylwilliams/devbox-images/builder/packer"
	"github.com/colbylwilliams/devbox-images/cli"
	"github.com/colbylwilliams/devbox-images/config"
)

func decodeReport(t *testing.T, out string) builder.BuildReport {
	t.Helper()
	var report builder.BuildReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	return report
}

func statuses(report builder.BuildReport) map[string]builder.Status {
	out := map[string]builder.Status{}
	for _, o := range report.Outcomes {
		out[o.Image] = o.Status
	}
	return out
}

func TestBuildCommand_PrepareOnly(t *testing.T) {
	root := setupRepo(t)
	runner := galleryRunner()

	res := execute(t, runner, root, "build", "--suffix", "test1", "--output", "json")
	require.NoError(t, res.err, res.stderr)

	report := decodeReport(t, res.stdout)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "java", report.Outcomes[0].Image, "outcomes follow directory order")
	assert.Equal(t, builder.StatusSkipped, report.Outcomes[0].Status)
	assert.Equal(t, builder.NoteUpToDate, report.Outcomes[0].Note)
	assert.Equal(t, builder.StatusSkipped, report.Outcomes[1].Status)
	assert.Equal(t, builder.NoteExecutionSkipped, report.Outcomes[1].Note)
	assert.Equal(t, "1.0.0", report.Outcomes[1].Version)

	data, err := os.ReadFile(filepath.Join(root, "images", "vscode", packer.VarsFile))
	require.NoError(t, err)
	var vars map[string]any
	require.NoError(t, json.Unmarshal(data, &vars))
	assert.Equal(t, "sub-1", vars["subscription"])
	assert.Equal(t, "gal1-vscode-test1", vars["tempResourceGroup"])
	assert.Equal(t, "eastus", vars["location"])

	for _, line := range runner.Lines() {
		assert.False(t, strings.HasPrefix(line, "packer build"), "no build without --build: %s", line)
	}
}

func TestBuildCommand_Build(t *testing.T) {
	root := setupRepo(t)
	runner := galleryRunner()

	res := execute(t, runner, root, "build", "-s", "test1", "--build", "--async", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	report := decodeReport(t, res.stdout)
	assert.Equal(t, map[string]builder.Status{"java": builder.StatusSkipped, "vscode": builder.StatusSucceeded}, statuses(report))

	dir := filepath.Join(root, "images", "vscode")
	assert.Contains(t, runner.Lines(), "packer init "+dir)
	assert.Contains(t, runner.Lines(), "packer build -force "+dir)
}

func TestBuildCommand_FailedImage(t *testing.T) {
	root := setupRepo(t)
	runner := galleryRunner().On("packer build", exit(1, "Build 'azure-arm.vm' errored"))

	res := execute(t, runner, root, "build", "-s", "test1", "-b", "-o", "json")
	require.Error(t, res.err)
	assert.Equal(t, exitBuildFailed, exitCode(res.err))
	assert.Equal(t, "1 of 2 images failed", res.err.Error())

	report := decodeReport(t, res.stdout)
	assert.Equal(t, builder.StatusFailed, statuses(report)["vscode"])
}

func TestBuildCommand_SelectByName(t *testing.T) {
	root := setupRepo(t)

	res := execute(t, galleryRunner(), root, "build", "-i", "java", "-s", "test1", "-o", "json")
	require.NoError(t, res.err, res.stderr)
	report := decodeReport(t, res.stdout)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "java", report.Outcomes[0].Image)
}

func TestBuildCommand_SelectByChanges(t *testing.T) {
	root := setupRepo(t)

	res := execute(t, galleryRunner(), root, "build", "-c", "images/vscode/build.pkr.hcl", "-s", "test1", "-o", "json")
	require.NoError(t, res.err, res.stderr)
	report := decodeReport(t, res.stdout)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "vscode", report.Outcomes[0].Image)
}

func TestBuildCommand_NoImagesSelected(t *testing.T) {
	root := setupRepo(t)
	runner := galleryRunner()

	res := execute(t, runner, root, "build", "-c", "README.md")
	require.NoError(t, res.err)
	assert.Empty(t, runner.Lines(), "nothing selected, nothing queried")
}

func TestBuildCommand_UnknownImage(t *testing.T) {
	root := setupRepo(t)
	runner := galleryRunner()

	res := execute(t, runner, root, "build", "-i", "vscod")
	require.Error(t, res.err)
	assert.Equal(t, exitError, exitCode(res.err))
	assert.Contains(t, res.err.Error(), "did you mean vscode")
	assert.Empty(t, runner.Lines())
}

func TestBuildCommand_InvalidDescriptorStopsBeforeDispatch(t *testing.T) {
	root := setupRepo(t)
	writeFile(t, filepath.Join(root, "images", "java", "image.yaml"),
		"sku: java\nversion: 2.0.1\nos: Windows\nbuilder: azure\nbuildResourceGroup: java-rg\ntempResourceGroup: java-tmp\n")
	runner := galleryRunner()

	res := execute(t, runner, root, "build", "-s", "test1", "-b")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "must only define one")
	for _, line := range runner.Lines() {
		assert.False(t, strings.HasPrefix(line, "packer"), "no backend runs: %s", line)
		assert.NotContains(t, line, "image-definition create", "the gallery is not changed")
		assert.NotContains(t, line, "image-version list", "the gallery is not queried")
	}
}

func TestBuildCommand_GitHubOutputs(t *testing.T) {
	root := setupRepo(t)
	out := filepath.Join(t.TempDir(), "output")
	summary := filepath.Join(t.TempDir(), "summary.md")

	isolateEnv(t)
	t.Setenv("GITHUB_OUTPUT", out)
	t.Setenv("GITHUB_STEP_SUMMARY", summary)

	res := executeNoIsolate(t, galleryRunner(), root, "build", "-s", "test1", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "build=true\n")
	assert.Contains(t, string(data), `"name":"vscode"`)
	assert.NotContains(t, string(data), `"name":"java"`)

	data, err = os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| vscode | 1.0.0 |")
}

func TestBuildCommand_WorkflowCommandsKeepJSONClean(t *testing.T) {
	root := setupRepo(t)
	runner := galleryRunner().On("packer build", exit(1, "Build 'azure-arm.vm' errored"))

	isolateEnv(t)
	t.Setenv("GITHUB_ACTIONS", "true")

	res := executeNoIsolate(t, runner, root, "build", "-s", "test1", "-b", "-o", "json")
	require.Error(t, res.err)

	assert.NotContains(t, res.stdout, "::")
	report := decodeReport(t, res.stdout)
	assert.Equal(t, builder.StatusFailed, statuses(report)["vscode"])

	for _, want := range []string{
		"::group::Resolving gallery versions\n",
		"::group::Building images\n",
		"::endgroup::\n",
		"::error title=vscode::",
	} {
		assert.Contains(t, res.stderr, want)
	}
}

func TestApplyBuilderEnvironment(t *testing.T) {
	opts := &cli.BuildCLIOptions{Changes: []string{"x"}}
	require.NoError(t, applyBuilderEnvironment(config.Environment{}, opts))
	assert.False(t, opts.Build)

	err := applyBuilderEnvironment(config.Environment{InBuilder: true}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUILD_IMAGE_NAME")

	require.NoError(t, applyBuilderEnvironment(config.Environment{InBuilder: true, BuildImageName: "vscode"}, opts))
	assert.Equal(t, []string{"vscode"}, opts.Images)
	assert.Nil(t, opts.Changes)
	assert.True(t, opts.Build)
}
