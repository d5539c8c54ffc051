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

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/colbylwilliams/devbox-images/builder"
	"github.com/colbylwilliams/devbox-images/image"
	"github.com/colbylwilliams/devbox-images/logging"
)

// OutputFormatter formats command output for display.
type OutputFormatter struct {
	format string // json, table, matrix
	out    io.Writer
}

// NewOutputFormatter creates a new output formatter writing to stdout.
func NewOutputFormatter(format string) *OutputFormatter {
	return &OutputFormatter{format: format, out: os.Stdout}
}

// WithWriter redirects output to w.
func (f *OutputFormatter) WithWriter(w io.Writer) *OutputFormatter {
	f.out = w
	return f
}

// DisplayReport displays a build report: one log line per outcome and
// then the report itself as a table or JSON.
func (f *OutputFormatter) DisplayReport(ctx context.Context, report *builder.BuildReport) error {
	for _, o := range report.Outcomes {
		switch o.Status {
		case builder.StatusFailed:
			logging.ErrorContext(ctx, "%s: %s", o.Image, o.ErrorDetail)
		case builder.StatusSkipped:
			logging.InfoContext(ctx, "%s: skipped (%s)", o.Image, o.Note)
		default:
			logging.InfoContext(ctx, "%s: %s version %s in %s", o.Image, o.Status, o.Version, o.Duration.Round(time.Second))
		}
	}

	if f.format == "json" {
		return f.writeJSON(report)
	}
	return f.reportTable(report)
}

func (f *OutputFormatter) reportTable(report *builder.BuildReport) error {
	w := tabwriter.NewWriter(f.out, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(w, "IMAGE\tBUILDER\tVERSION\tSTATUS\tDURATION\tDETAIL"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, o := range report.Outcomes {
		detail := o.Note
		if o.Status == builder.StatusFailed {
			detail = firstLine(o.ErrorDetail)
		} else if o.ExternalBuildID != "" {
			detail = o.ExternalBuildID
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.Image, valueOr(string(o.Builder), "-"), valueOr(o.Version, "-"), o.Status,
			o.Duration.Round(time.Second), detail); err != nil {
			return fmt.Errorf("failed to write outcome row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	_, err := fmt.Fprintf(f.out, "\nRun %s: %d succeeded, %d failed, %d skipped\n",
		report.RunID, len(report.Built()), len(report.Failed()),
		len(report.Outcomes)-len(report.Built())-len(report.Failed()))
	return err
}

// DisplayDefinitions displays loaded image definitions.
func (f *OutputFormatter) DisplayDefinitions(defs []*image.ImageDefinition) error {
	switch f.format {
	case "json":
		return f.writeJSON(defs)
	case "matrix":
		return f.writeJSON(map[string]any{"include": defs})
	}

	w := tabwriter.NewWriter(f.out, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(w, "NAME\tVERSION\tBUILDER\tOS\tPUBLISHER\tOFFER\tSKU"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, d := range defs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name, d.Version, d.Builder, d.OS, d.Publisher, d.Offer, d.SKU); err != nil {
			return fmt.Errorf("failed to write image row: %w", err)
		}
	}
	return w.Flush()
}

// DisplayResolved displays resolved images.
func (f *OutputFormatter) DisplayResolved(images []*image.ResolvedImage) error {
	switch f.format {
	case "json":
		return f.writeJSON(images)
	case "matrix":
		return f.writeJSON(map[string]any{"include": images})
	}

	w := tabwriter.NewWriter(f.out, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(w, "NAME\tBUILD\tVERSION\tLATEST\tBUILDER\tRESOURCE GROUP"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, img := range images {
		group := img.ResourceGroupName
		if img.ResourceGroupIsTemporary {
			group += " (temporary)"
		}
		if _, err := fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\t%s\n",
			img.Name, img.BuildNeeded, img.PublishVersion(), valueOr(img.LatestVersion, "-"),
			img.Builder, group); err != nil {
			return fmt.Errorf("failed to write image row: %w", err)
		}
	}
	return w.Flush()
}

// DisplayGallery displays the gallery definition.
func (f *OutputFormatter) DisplayGallery(gal image.GalleryDefinition) error {
	if f.format == "json" || f.format == "matrix" {
		return f.writeJSON(gal)
	}
	w := tabwriter.NewWriter(f.out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "Name:\t%s\n", gal.Name)
	_, _ = fmt.Fprintf(w, "Resource group:\t%s\n", gal.ResourceGroup)
	_, _ = fmt.Fprintf(w, "Subscription:\t%s\n", valueOr(gal.Subscription, "(default)"))
	return w.Flush()
}

func (f *OutputFormatter) writeJSON(v any) error {
	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
