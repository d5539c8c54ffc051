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

// Package ci publishes run results to GitHub Actions: step outputs that
// drive a follow-up build matrix, a markdown step summary, and workflow
// commands for log groups and error annotations.
package ci

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/colbylwilliams/devbox-images/builder"
	"github.com/colbylwilliams/devbox-images/image"
)

// Output names written to $GITHUB_OUTPUT.
const (
	OutputImages = "images"
	OutputBuild  = "build"
)

// Summary headings.
const (
	SummaryHeading      = "### Images prepared for update"
	SummaryEmptyHeading = "#### No images were built"
)

// Matrix is the strategy matrix written to the images output.
type Matrix struct {
	Include []*image.ResolvedImage `json:"include"`
}

// GitHub writes to the files and log stream GitHub Actions provides. A
// zero path disables the corresponding channel.
type GitHub struct {
	OutputPath  string
	SummaryPath string
	// Enabled turns on workflow commands on Out.
	Enabled bool
	Out     io.Writer
}

// NewGitHub returns a GitHub writing workflow commands to stderr, which
// the runner parses like stdout, so reports on stdout stay machine readable.
func NewGitHub(enabled bool, outputPath, summaryPath string) *GitHub {
	return &GitHub{
		OutputPath:  outputPath,
		SummaryPath: summaryPath,
		Enabled:     enabled,
		Out:         os.Stderr,
	}
}

// WriteOutputs appends the images matrix and the build flag to the output
// file. build is true iff at least one image needs a new version.
func (g *GitHub) WriteOutputs(images []*image.ResolvedImage) error {
	if g.OutputPath == "" {
		return nil
	}

	include := make([]*image.ResolvedImage, 0, len(images))
	for _, img := range images {
		if img.BuildNeeded {
			include = append(include, img)
		}
	}

	data, err := json.Marshal(Matrix{Include: include})
	if err != nil {
		return fmt.Errorf("failed to encode images output: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", OutputImages, data)
	fmt.Fprintf(&b, "%s=%t\n", OutputBuild, len(include) > 0)
	return appendFile(g.OutputPath, b.String())
}

// WriteSummary appends a table of the images that need a new version to
// the step summary. When report is non-nil each row carries the image's
// outcome status.
func (g *GitHub) WriteSummary(images []*image.ResolvedImage, report *builder.BuildReport) error {
	if g.SummaryPath == "" {
		return nil
	}
	return appendFile(g.SummaryPath, Summary(images, report))
}

// Summary renders the step summary markdown.
func Summary(images []*image.ResolvedImage, report *builder.BuildReport) string {
	statuses := map[string]builder.Status{}
	if report != nil {
		for _, o := range report.Outcomes {
			statuses[o.Image] = o.Status
		}
	}

	var rows []*image.ResolvedImage
	for _, img := range images {
		if img.BuildNeeded {
			rows = append(rows, img)
		}
	}
	if len(rows) == 0 {
		return SummaryEmptyHeading + "\n\n"
	}

	var b strings.Builder
	b.WriteString(SummaryHeading + "\n\n")
	b.WriteString("| Name | Version | Publisher | Offer | SKU | OS | Resource Group | Status |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- |\n")
	for _, img := range rows {
		cells := []string{
			img.Name,
			img.PublishVersion(),
			img.Publisher,
			img.Offer,
			img.SKU,
			string(img.OS),
			img.ResourceGroupName,
			string(statuses[img.Name]),
		}
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
	}
	b.WriteString("\n")
	return b.String()
}

// Group starts a collapsible log group.
func (g *GitHub) Group(name string) {
	if g.Enabled {
		fmt.Fprintf(g.Out, "::group::%s\n", escapeData(name))
	}
}

// EndGroup ends the current log group.
func (g *GitHub) EndGroup() {
	if g.Enabled {
		fmt.Fprintln(g.Out, "::endgroup::")
	}
}

// Annotate emits an error annotation for every failed outcome.
func (g *GitHub) Annotate(report *builder.BuildReport) {
	if !g.Enabled || report == nil {
		return
	}
	for _, o := range report.Failed() {
		fmt.Fprintf(g.Out, "::error title=%s::%s\n", escapeProperty(o.Image), escapeData(o.ErrorDetail))
	}
}

func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

func escapeProperty(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C").Replace(s)
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
