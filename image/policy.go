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

package image

import (
	"fmt"
	"strings"

	"github.com/colbylwilliams/devbox-images/errors"
)

// TemporaryGroupName returns the per-run resource group name for an image.
func TemporaryGroupName(galleryName, imageName, suffix string) string {
	return fmt.Sprintf("%s-%s-%s", galleryName, imageName, suffix)
}

// Resolution is the gallery decision for one image, produced by the
// version resolver and consumed by ApplyPolicy.
type Resolution struct {
	BuildNeeded        bool
	NextVersion        string
	LatestVersion      string
	DefinitionLocation string
	DefinitionID       string
}

// ValidateDescriptor checks the parts of img that need no gallery data:
// policy rules 1 and 4 and the declared version. Callers run it for every
// image before any backend call so an invalid descriptor never changes
// the gallery.
func ValidateDescriptor(img *ImageDefinition) error {
	if err := checkGroups(img); err != nil {
		return err
	}
	if _, err := ParseVersion(img.Version); err != nil {
		return errors.NewValidationError(img.Name, "version", "%v", err)
	}
	return nil
}

// checkGroups applies rule 1 and rule 4.
func checkGroups(img *ImageDefinition) error {
	buildGroup := strings.TrimSpace(img.BuildResourceGroup)
	if buildGroup != "" && strings.TrimSpace(img.TempResourceGroup) != "" {
		return errors.NewValidationError(img.Name, "buildResourceGroup",
			"has values for both buildResourceGroup and tempResourceGroup, must only define one")
	}
	if buildGroup != "" && strings.TrimSpace(img.Location) != "" {
		return errors.NewValidationError(img.Name, "location",
			"has a buildResourceGroup and a location, the location of an existing resource group cannot be declared")
	}
	return nil
}

// ApplyPolicy selects the build resource group for img and returns the
// resolved descriptor. It performs no I/O. Rules, in order:
//
//  1. buildResourceGroup and tempResourceGroup together are ambiguous.
//  2. Without either, a temporary group is synthesized, which needs both a
//     suffix and a location; missing either leaves the image underspecified.
//  3. A temporary group needs a location, taken from the image or else the
//     gallery image definition. A synthesized name is {gallery}-{image}-{suffix}.
//  4. A persistent group owns its location, so declaring one is an error.
func ApplyPolicy(img *ImageDefinition, gal GalleryDefinition, suffix string, res Resolution) (*ResolvedImage, error) {
	buildGroup := strings.TrimSpace(img.BuildResourceGroup)
	tempGroup := strings.TrimSpace(img.TempResourceGroup)
	location := strings.TrimSpace(img.Location)

	if err := checkGroups(img); err != nil {
		return nil, err
	}

	resolved := &ResolvedImage{
		ImageDefinition:    *img,
		Gallery:            gal,
		BuildNeeded:        res.BuildNeeded,
		LatestVersion:      res.LatestVersion,
		DefinitionLocation: res.DefinitionLocation,
		DefinitionID:       res.DefinitionID,
	}
	if res.BuildNeeded {
		resolved.NextVersion = res.NextVersion
	}

	if buildGroup != "" {
		resolved.ResourceGroupName = buildGroup
		resolved.ResourceGroupIsTemporary = false
		resolved.Location = ""
		return resolved, nil
	}

	if location == "" {
		location = strings.TrimSpace(res.DefinitionLocation)
	}

	if tempGroup == "" {
		suffix = strings.TrimSpace(suffix)
		if suffix == "" || location == "" {
			return nil, errors.NewValidationError(img.Name, "buildResourceGroup",
				"has no value for buildResourceGroup and no temporary resource group can be derived, must define one")
		}
		tempGroup = TemporaryGroupName(gal.Name, img.Name, suffix)
	}

	if location == "" {
		return nil, errors.NewValidationError(img.Name, "location",
			"has a tempResourceGroup but no location")
	}

	resolved.TempResourceGroup = tempGroup
	resolved.ResourceGroupName = tempGroup
	resolved.ResourceGroupIsTemporary = true
	resolved.Location = location
	return resolved, nil
}
