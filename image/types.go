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

// Package image defines the gallery and image records that drive a build
// run, loads them from the repository's YAML configuration, and applies
// the resource-group policy that makes a descriptor ready for a builder.
package image

import (
	"fmt"
	"strings"

	"github.com/colbylwilliams/devbox-images/errors"
)

// Builder identifies the backend that produces an image.
type Builder string

// Supported builders.
const (
	// BuilderLocal runs packer on the current machine.
	BuilderLocal Builder = "local"
	// BuilderCloud runs Azure Image Builder through a resource-group deployment.
	BuilderCloud Builder = "cloud"
)

var builderSynonyms = map[string]Builder{
	"az":                  BuilderCloud,
	"azure":               BuilderCloud,
	"aib":                 BuilderCloud,
	"azureimagebuilder":   BuilderCloud,
	"azure-image-builder": BuilderCloud,
	"imagebuilder":        BuilderCloud,
	"image-builder":       BuilderCloud,
	"cloud":               BuilderCloud,
	"packer":              BuilderLocal,
	"pkr":                 BuilderLocal,
	"local":               BuilderLocal,
}

// NormalizeBuilder maps a configured builder name to a Builder.
// Matching is case-insensitive and an empty value selects BuilderLocal.
func NormalizeBuilder(value string) (Builder, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return BuilderLocal, nil
	}
	if b, ok := builderSynonyms[v]; ok {
		return b, nil
	}
	return "", fmt.Errorf("unknown builder %q", value)
}

// OS is the operating system of an image definition.
type OS string

// Supported operating systems.
const (
	Linux   OS = "linux"
	Windows OS = "windows"
)

// ParseOS maps a configured os value to an OS, case-insensitively.
func ParseOS(value string) (OS, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	}
	return "", fmt.Errorf("unknown os %q, expected linux or windows", value)
}

// LatestVersion is the declared version meaning "always build the next patch".
const LatestVersion = "latest"

// GalleryDefinition is the target compute gallery.
type GalleryDefinition struct {
	Name          string `yaml:"name" json:"name"`
	ResourceGroup string `yaml:"resourceGroup" json:"resourceGroup"`
	Subscription  string `yaml:"subscription,omitempty" json:"subscription,omitempty"`
}

// Validate checks that the required gallery properties have values.
func (g GalleryDefinition) Validate(path string) error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.NewConfigError(path, "gallery must have a 'name' property with a value")
	}
	if strings.TrimSpace(g.ResourceGroup) == "" {
		return errors.NewConfigError(path, "gallery must have a 'resourceGroup' property with a value")
	}
	return nil
}

// Repo is a source repository an image clones during its build.
type Repo struct {
	URL    string `yaml:"url" json:"url" jsonschema:"required"`
	Secret string `yaml:"secret,omitempty" json:"secret,omitempty" jsonschema:"description=Key Vault secret holding a token for private repositories"`
}

// ImageDefinition is one image as declared in its image.yaml, merged with
// the common images.yaml properties.
type ImageDefinition struct {
	Name string `yaml:"-" json:"name" jsonschema:"-"`
	Path string `yaml:"-" json:"path" jsonschema:"-"`

	Publisher        string   `yaml:"publisher" json:"publisher" jsonschema:"required"`
	Offer            string   `yaml:"offer" json:"offer" jsonschema:"required"`
	SKU              string   `yaml:"sku" json:"sku" jsonschema:"required"`
	Version          string   `yaml:"version" json:"version" jsonschema:"required,description=Semantic version to publish or 'latest'"`
	OS               OS       `yaml:"os" json:"os" jsonschema:"required,enum=linux,enum=windows,enum=Linux,enum=Windows"`
	ReplicaLocations []string `yaml:"replicaLocations" json:"replicaLocations" jsonschema:"required,minItems=1"`
	Builder          Builder  `yaml:"builder" json:"builder" jsonschema:"description=packer or azure (and synonyms)"`
	Description      string   `yaml:"description,omitempty" json:"description,omitempty"`

	BuildResourceGroup string `yaml:"buildResourceGroup,omitempty" json:"buildResourceGroup,omitempty"`
	TempResourceGroup  string `yaml:"tempResourceGroup,omitempty" json:"tempResourceGroup,omitempty"`
	Location           string `yaml:"location,omitempty" json:"location,omitempty"`

	KeyVault                    string `yaml:"keyVault,omitempty" json:"keyVault,omitempty"`
	VirtualNetwork              string `yaml:"virtualNetwork,omitempty" json:"virtualNetwork,omitempty"`
	VirtualNetworkSubnet        string `yaml:"virtualNetworkSubnet,omitempty" json:"virtualNetworkSubnet,omitempty"`
	VirtualNetworkResourceGroup string `yaml:"virtualNetworkResourceGroup,omitempty" json:"virtualNetworkResourceGroup,omitempty"`

	// AlwaysBuild publishes a new version on every run even when the
	// declared version already exists in the gallery.
	AlwaysBuild bool   `yaml:"alwaysBuild,omitempty" json:"alwaysBuild,omitempty"`
	Repos       []Repo `yaml:"repos,omitempty" json:"repos,omitempty"`

	// Extra holds any additional keys from image.yaml so they can be
	// handed to packer variables of the same name.
	Extra map[string]any `yaml:"-" json:"-" jsonschema:"-"`
}

// IsLatest reports whether the declared version is "latest".
func (i *ImageDefinition) IsLatest() bool {
	return strings.EqualFold(strings.TrimSpace(i.Version), LatestVersion)
}

// ResolvedImage is an ImageDefinition annotated with the gallery decision
// and the resource-group strategy for this run.
type ResolvedImage struct {
	ImageDefinition

	Gallery GalleryDefinition `json:"gallery"`

	// BuildNeeded is true when a new version must be published.
	BuildNeeded bool `json:"build"`
	// NextVersion is set only when BuildNeeded.
	NextVersion string `json:"nextVersion,omitempty"`
	// LatestVersion is the newest version already in the gallery, if any.
	LatestVersion string `json:"latestVersion,omitempty"`
	// DefinitionLocation is the region of the gallery image definition.
	DefinitionLocation string `json:"definitionLocation,omitempty"`
	// DefinitionID is the resource ID of the gallery image definition.
	DefinitionID string `json:"definitionId,omitempty"`

	ResourceGroupName        string `json:"resourceGroup"`
	ResourceGroupIsTemporary bool   `json:"resourceGroupIsTemporary"`
}

// PublishVersion is the version a build publishes: NextVersion when set,
// otherwise the declared version.
func (r *ResolvedImage) PublishVersion() string {
	if r.NextVersion != "" {
		return r.NextVersion
	}
	return r.Version
}
