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

package gallery

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/image"
	"github.com/colbylwilliams/devbox-images/logging"
)

// Resolver decides whether each image needs a new gallery version.
type Resolver struct {
	client Client
	retry  retrier
	// CreateMissing creates absent image definitions so a version can be
	// published into them. When false the gallery location stands in for
	// the definition location.
	CreateMissing bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRetry sets the attempt limit and initial backoff for gallery queries.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(r *Resolver) {
		r.retry.maxAttempts = maxAttempts
		r.retry.backoff = backoff
	}
}

// WithCreateMissing enables creation of absent image definitions.
func WithCreateMissing(create bool) Option {
	return func(r *Resolver) {
		r.CreateMissing = create
	}
}

// withSleep replaces the backoff sleep, for tests.
func withSleep(fn func(context.Context, time.Duration) error) Option {
	return func(r *Resolver) {
		r.retry.sleep = fn
	}
}

// NewResolver creates a Resolver backed by client.
func NewResolver(client Client, opts ...Option) *Resolver {
	r := &Resolver{
		client: client,
		retry:  retrier{maxAttempts: DefaultMaxAttempts, backoff: DefaultBackoff},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve queries the gallery for img's definition and latest version and
// returns the build decision. The definition location is always returned.
// A malformed declared version is a ValidationError; gallery failures
// surviving retries are BackendErrors.
func (r *Resolver) Resolve(ctx context.Context, img *image.ImageDefinition, gal image.GalleryDefinition) (image.Resolution, error) {
	declared, err := ParseVersion(img.Version)
	if err != nil {
		return image.Resolution{}, errors.NewValidationError(img.Name, "version", "%v", err)
	}

	def, found, err := r.findDefinition(ctx, img, gal)
	if err != nil {
		return image.Resolution{}, err
	}

	if !found {
		return r.resolveMissing(ctx, img, gal, declared)
	}

	var versions []string
	err = r.retry.do(ctx, "list image versions", img.Name, func() error {
		var lerr error
		versions, lerr = r.client.ListImageVersions(ctx, gal, def.Name)
		return lerr
	})
	if err != nil {
		return image.Resolution{}, err
	}

	latest := LatestOf(ctx, versions)
	decision := Decide(declared, latest, img.AlwaysBuild)

	res := image.Resolution{
		BuildNeeded:        decision.BuildNeeded,
		DefinitionLocation: def.Location,
		DefinitionID:       def.ID,
	}
	if latest != nil {
		res.LatestVersion = latest.String()
	}
	if decision.BuildNeeded {
		res.NextVersion = decision.NextVersion
	}

	switch {
	case decision.Stale:
		logging.WarnContext(ctx, "Declared version %s is lower than the latest gallery version %s", img.Version, res.LatestVersion)
	case !decision.BuildNeeded:
		logging.InfoContext(ctx, "Version %s already exists in %s, skipping build", img.Version, def.Name)
	default:
		logging.InfoContext(ctx, "Building version %s (latest in gallery: %s)", res.NextVersion, valueOr(res.LatestVersion, "none"))
	}
	return res, nil
}

func (r *Resolver) findDefinition(ctx context.Context, img *image.ImageDefinition, gal image.GalleryDefinition) (Definition, bool, error) {
	var defs []Definition
	err := r.retry.do(ctx, "list image definitions", img.Name, func() error {
		var lerr error
		defs, lerr = r.client.ListImageDefinitions(ctx, gal)
		return lerr
	})
	if err != nil {
		return Definition{}, false, err
	}

	for _, d := range defs {
		if d.Matches(img) {
			return d, true, nil
		}
	}

	for _, d := range defs {
		if strings.EqualFold(d.Name, img.Name) {
			return Definition{}, false, errors.NewValidationError(img.Name, "sku",
				"image definition %s already exists in gallery %s with publisher/offer/sku/os %s/%s/%s/%s",
				d.Name, gal.Name, d.Publisher, d.Offer, d.SKU, d.OSType)
		}
	}
	return Definition{}, false, nil
}

// resolveMissing handles an image whose definition does not exist yet. A
// build is always needed.
func (r *Resolver) resolveMissing(ctx context.Context, img *image.ImageDefinition, gal image.GalleryDefinition, declared *semver.Version) (image.Resolution, error) {
	decision := Decide(declared, nil, img.AlwaysBuild)
	res := image.Resolution{BuildNeeded: true, NextVersion: decision.NextVersion}

	var info Info
	err := r.retry.do(ctx, "get gallery", img.Name, func() error {
		var gerr error
		info, gerr = r.client.GetGallery(ctx, gal)
		return gerr
	})
	if err != nil {
		return image.Resolution{}, err
	}
	res.DefinitionLocation = info.Location

	if !r.CreateMissing {
		logging.InfoContext(ctx, "Image definition for %s not found in gallery %s", img.Name, gal.Name)
		return res, nil
	}

	logging.InfoContext(ctx, "Creating image definition %s in gallery %s", img.Name, gal.Name)
	def, err := r.client.CreateImageDefinition(ctx, gal, img, info.Location)
	if err != nil {
		return image.Resolution{}, errors.Wrap("create image definition", img.Name, err)
	}
	if def.Location != "" {
		res.DefinitionLocation = def.Location
	}
	res.DefinitionID = def.ID
	return res, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
