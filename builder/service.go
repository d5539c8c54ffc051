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
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/image"
	"github.com/colbylwilliams/devbox-images/logging"
)

// Resolver decides whether an image needs a new gallery version.
type Resolver interface {
	Resolve(ctx context.Context, img *image.ImageDefinition, gal image.GalleryDefinition) (image.Resolution, error)
}

// PlanEntry is one image of a Plan. Exactly one of Image and Outcome is
// set: Outcome records a gallery query that failed for this image.
type PlanEntry struct {
	Image   *image.ResolvedImage
	Outcome *Outcome
}

// Plan is the resolved form of a run, in input order.
type Plan struct {
	RunID   string
	Suffix  string
	Gallery image.GalleryDefinition
	Entries []PlanEntry
}

// Resolved returns the images that resolved successfully.
func (p *Plan) Resolved() []*image.ResolvedImage {
	var out []*image.ResolvedImage
	for _, e := range p.Entries {
		if e.Image != nil {
			out = append(out, e.Image)
		}
	}
	return out
}

// BuildNeeded returns the resolved images that need a new version.
func (p *Plan) BuildNeeded() []*image.ResolvedImage {
	var out []*image.ResolvedImage
	for _, img := range p.Resolved() {
		if img.BuildNeeded {
			out = append(out, img)
		}
	}
	return out
}

// BuildService runs the resolve, policy and dispatch pipeline for a set
// of images.
type BuildService struct {
	resolver   Resolver
	dispatcher *Dispatcher
}

// NewBuildService creates a BuildService.
func NewBuildService(resolver Resolver, dispatcher *Dispatcher) *BuildService {
	return &BuildService{resolver: resolver, dispatcher: dispatcher}
}

// Plan resolves every image against the gallery and applies the
// resource-group policy. Descriptors are validated first, before any
// gallery query, since resolving may create image definitions. Gallery
// queries run on the executor selected by opts. Validation errors from
// any image are joined and returned so an invalid descriptor never reaches
// a backend; gallery failures only fail their own image.
func (s *BuildService) Plan(ctx context.Context, images []*image.ImageDefinition, gal image.GalleryDefinition, suffix string, opts Options) (*Plan, error) {
	var invalid []error
	for _, img := range images {
		if err := image.ValidateDescriptor(img); err != nil {
			invalid = append(invalid, err)
		}
	}
	if len(invalid) > 0 {
		return nil, stderrors.Join(invalid...)
	}

	plan := &Plan{
		RunID:   uuid.NewString(),
		Suffix:  suffix,
		Gallery: gal,
		Entries: make([]PlanEntry, len(images)),
	}
	errs := make([]error, len(images))

	exec := opts.Executor()
	for i, img := range images {
		i, img := i, img
		exec.Go(func() {
			plan.Entries[i], errs[i] = s.planImage(logging.WithImage(ctx, img.Name), img, gal, suffix)
		})
	}
	exec.Wait()

	if err := stderrors.Join(errs...); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *BuildService) planImage(ctx context.Context, img *image.ImageDefinition, gal image.GalleryDefinition, suffix string) (PlanEntry, error) {
	res, err := s.resolver.Resolve(ctx, img, gal)
	if err != nil {
		if errors.IsValidation(err) {
			return PlanEntry{}, err
		}
		logging.ErrorContext(ctx, "Failed to resolve gallery version: %v", err)
		return PlanEntry{Outcome: &Outcome{
			Image:       img.Name,
			Builder:     img.Builder,
			Version:     img.Version,
			Status:      StatusFailed,
			ErrorDetail: err.Error(),
		}}, nil
	}

	resolved, err := image.ApplyPolicy(img, gal, suffix, res)
	if err != nil {
		return PlanEntry{}, err
	}
	return PlanEntry{Image: resolved}, nil
}

// Dispatch builds the resolved images of plan and returns a report that
// also carries the plan's failed entries, all in input order.
func (s *BuildService) Dispatch(ctx context.Context, plan *Plan, opts Options) *BuildReport {
	var (
		resolved []*image.ResolvedImage
		index    []int
	)
	for i, e := range plan.Entries {
		if e.Image != nil {
			resolved = append(resolved, e.Image)
			index = append(index, i)
		}
	}

	dispatched := s.dispatcher.Run(ctx, resolved, opts)

	report := &BuildReport{
		RunID:    plan.RunID,
		Outcomes: make([]Outcome, len(plan.Entries)),
	}
	for i, e := range plan.Entries {
		if e.Outcome != nil {
			report.Outcomes[i] = *e.Outcome
		}
	}
	for j, i := range index {
		report.Outcomes[i] = dispatched.Outcomes[j]
	}

	logging.InfoContext(ctx, "Run %s finished: %d built, %d failed, %d images",
		report.RunID, len(report.Built()), len(report.Failed()), len(report.Outcomes))
	return report
}

// Run plans and dispatches images in one step.
func (s *BuildService) Run(ctx context.Context, images []*image.ImageDefinition, gal image.GalleryDefinition, suffix string, opts Options) (*BuildReport, error) {
	plan, err := s.Plan(ctx, images, gal, suffix, opts)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, plan, opts), nil
}
