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

// Package gallery decides whether an image needs a new version in the
// compute gallery and which version that should be.
package gallery

import (
	"context"
	"strings"

	"github.com/colbylwilliams/devbox-images/image"
)

// Info describes the gallery resource.
type Info struct {
	ID       string
	Location string
}

// Definition is a gallery image definition.
type Definition struct {
	Name      string
	ID        string
	Location  string
	Publisher string
	Offer     string
	SKU       string
	OSType    string
}

// Matches reports whether the definition's identifier and OS match img.
func (d Definition) Matches(img *image.ImageDefinition) bool {
	return strings.EqualFold(d.Publisher, img.Publisher) &&
		strings.EqualFold(d.Offer, img.Offer) &&
		strings.EqualFold(d.SKU, img.SKU) &&
		strings.EqualFold(d.OSType, string(img.OS))
}

// Client queries and updates a compute gallery. Implementations report
// failures that may succeed on retry as transient BackendErrors.
type Client interface {
	// GetGallery returns the gallery resource.
	GetGallery(ctx context.Context, gal image.GalleryDefinition) (Info, error)
	// ListImageDefinitions returns every image definition in the gallery.
	ListImageDefinitions(ctx context.Context, gal image.GalleryDefinition) ([]Definition, error)
	// CreateImageDefinition creates the definition for img in location.
	CreateImageDefinition(ctx context.Context, gal image.GalleryDefinition, img *image.ImageDefinition, location string) (Definition, error)
	// ListImageVersions returns the version names under a definition.
	ListImageVersions(ctx context.Context, gal image.GalleryDefinition, definition string) ([]string, error)
}
