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

package azure

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/colbylwilliams/devbox-images/gallery"
	"github.com/colbylwilliams/devbox-images/image"
)

type galleryJSON struct {
	ID       string `json:"id"`
	Location string `json:"location"`
}

type identifierJSON struct {
	Publisher string `json:"publisher"`
	Offer     string `json:"offer"`
	SKU       string `json:"sku"`
}

type definitionJSON struct {
	Name       string         `json:"name"`
	ID         string         `json:"id"`
	Location   string         `json:"location"`
	OSType     string         `json:"osType"`
	Identifier identifierJSON `json:"identifier"`
}

func (d definitionJSON) toDefinition() gallery.Definition {
	return gallery.Definition{
		Name:      d.Name,
		ID:        d.ID,
		Location:  d.Location,
		Publisher: d.Identifier.Publisher,
		Offer:     d.Identifier.Offer,
		SKU:       d.Identifier.SKU,
		OSType:    d.OSType,
	}
}

// GetGallery implements gallery.Client.
func (c *CLI) GetGallery(ctx context.Context, gal image.GalleryDefinition) (gallery.Info, error) {
	var g galleryJSON
	err := c.runJSON(ctx, "show gallery", &g,
		"sig", "show", "--resource-group", gal.ResourceGroup, "--gallery-name", gal.Name)
	if err != nil {
		return gallery.Info{}, err
	}
	return gallery.Info{ID: g.ID, Location: g.Location}, nil
}

// ListImageDefinitions implements gallery.Client.
func (c *CLI) ListImageDefinitions(ctx context.Context, gal image.GalleryDefinition) ([]gallery.Definition, error) {
	var defs []definitionJSON
	err := c.runJSON(ctx, "list image definitions", &defs,
		"sig", "image-definition", "list", "--resource-group", gal.ResourceGroup, "--gallery-name", gal.Name)
	if err != nil {
		return nil, err
	}

	out := make([]gallery.Definition, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.toDefinition())
	}
	return out, nil
}

// CreateImageDefinition implements gallery.Client. Definitions are created
// generalized, Hyper-V generation 2 and Trusted Launch, as Dev Box requires.
func (c *CLI) CreateImageDefinition(ctx context.Context, gal image.GalleryDefinition, img *image.ImageDefinition, location string) (gallery.Definition, error) {
	args := []string{
		"sig", "image-definition", "create",
		"--resource-group", gal.ResourceGroup,
		"--gallery-name", gal.Name,
		"--gallery-image-definition", img.Name,
		"--publisher", img.Publisher,
		"--offer", img.Offer,
		"--sku", img.SKU,
		"--os-type", osType(img.OS),
		"--os-state", "Generalized",
		"--hyper-v-generation", "V2",
		"--features", "SecurityType=TrustedLaunch",
	}
	if location != "" {
		args = append(args, "--location", location)
	}
	if img.Description != "" {
		args = append(args, "--description", img.Description)
	}

	var d definitionJSON
	if err := c.runJSON(ctx, "create image definition", &d, args...); err != nil {
		return gallery.Definition{}, err
	}
	return d.toDefinition(), nil
}

// ListImageVersions implements gallery.Client. A missing definition has
// no versions.
func (c *CLI) ListImageVersions(ctx context.Context, gal image.GalleryDefinition, definition string) ([]string, error) {
	var names []string
	err := c.runJSON(ctx, "list image versions", &names,
		"sig", "image-version", "list",
		"--resource-group", gal.ResourceGroup,
		"--gallery-name", gal.Name,
		"--gallery-image-definition", definition,
		"--query", "[].name")
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return names, nil
}

func osType(os image.OS) string {
	if strings.EqualFold(string(os), string(image.Linux)) {
		return "Linux"
	}
	return "Windows"
}
