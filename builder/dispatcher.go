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

package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/image"
	"github.com/colbylwilliams/devbox-images/logging"
)

// Dispatcher routes build-eligible images to the adapter for their
// builder and collects one Outcome per image.
type Dispatcher struct {
	adapters map[image.Builder]Adapter
}

// NewDispatcher creates a Dispatcher with the given adapters keyed by the
// builder they serve.
func NewDispatcher(adapters map[image.Builder]Adapter) *Dispatcher {
	d := &Dispatcher{adapters: map[image.Builder]Adapter{}}
	for b, a := range adapters {
		d.adapters[b] = a
	}
	return d
}

// Adapter returns the adapter registered for b.
func (d *Dispatcher) Adapter(b image.Builder) (Adapter, bool) {
	a, ok := d.adapters[b]
	return a, ok
}

// Run processes images and returns a report whose outcomes are in input
// order. Images that need no build are skipped without touching a
// backend. A failing image never stops or cancels the others.
func (d *Dispatcher) Run(ctx context.Context, images []*image.ResolvedImage, opts Options) *BuildReport {
	report := &BuildReport{
		RunID:    uuid.NewString(),
		Outcomes: make([]Outcome, len(images)),
	}

	exec := opts.Executor()
	for i, img := range images {
		i, img := i, img
		if !img.BuildNeeded {
			report.Outcomes[i] = Outcome{
				Image:   img.Name,
				Builder: img.Builder,
				Version: img.Version,
				Status:  StatusSkipped,
				Note:    NoteUpToDate,
			}
			continue
		}

		exec.Go(func() {
			report.Outcomes[i] = d.dispatch(ctx, img, opts)
		})
	}
	exec.Wait()

	return report
}

func (d *Dispatcher) dispatch(ctx context.Context, img *image.ResolvedImage, opts Options) (out Outcome) {
	ctx = logging.WithImage(ctx, img.Name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = Failed(img, fmt.Errorf("builder panicked: %v", r))
		}
		out.Duration = time.Since(start)
		if out.Status == StatusFailed {
			logging.ErrorContext(ctx, "Build failed: %s", out.ErrorDetail)
		}
	}()

	adapter, ok := d.adapters[img.Builder]
	if !ok {
		return Failed(img, fmt.Errorf("no adapter registered for builder %q", img.Builder))
	}

	logging.InfoContext(ctx, "Preparing %s build inputs for version %s", adapter.Name(), img.PublishVersion())
	artifact, err := adapter.Prepare(ctx, img)
	if err != nil {
		return Failed(img, errors.Wrap("prepare", adapter.Name(), err))
	}

	if !opts.ExecuteBuild {
		logging.InfoContext(ctx, "Skipping build execution, inputs written to %s", artifact.Path)
		return Outcome{
			Image:    img.Name,
			Builder:  img.Builder,
			Version:  img.PublishVersion(),
			Status:   StatusSkipped,
			Note:     NoteExecutionSkipped,
			Artifact: artifact,
		}
	}

	logging.InfoContext(ctx, "Executing %s build", adapter.Name())
	out = adapter.Execute(ctx, img)
	return normalizeOutcome(out, img, artifact)
}

// normalizeOutcome fills identity fields an adapter left empty and keeps
// ErrorDetail present iff the outcome failed.
func normalizeOutcome(out Outcome, img *image.ResolvedImage, artifact *Artifact) Outcome {
	if out.Image == "" {
		out.Image = img.Name
	}
	if out.Builder == "" {
		out.Builder = img.Builder
	}
	if out.Version == "" {
		out.Version = img.PublishVersion()
	}
	if out.Artifact == nil {
		out.Artifact = artifact
	}
	switch out.Status {
	case StatusFailed:
		if out.ErrorDetail == "" {
			out.ErrorDetail = "build failed"
		}
	case StatusSucceeded, StatusSkipped:
		out.ErrorDetail = ""
	default:
		out.ErrorDetail = fmt.Sprintf("builder returned unknown status %q", out.Status)
		out.Status = StatusFailed
	}
	return out
}
