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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/colbylwilliams/devbox-images/errors"
)

// Config file base names. Each may use the .yaml or .yml extension but
// never both in the same directory.
const (
	GalleryFile = "gallery"
	CommonFile  = "images"
	ImageFile   = "image"
)

// RequiredProperties must have values after common properties are merged.
var RequiredProperties = []string{"publisher", "offer", "sku", "version", "os", "replicaLocations", "builder"}

// CommonProperties are the only keys allowed in the common images file.
var CommonProperties = []string{
	"publisher",
	"offer",
	"replicaLocations",
	"builder",
	"buildResourceGroup",
	"keyVault",
	"virtualNetwork",
	"virtualNetworkSubnet",
	"virtualNetworkResourceGroup",
}

// knownProperties are the image.yaml keys decoded into ImageDefinition fields.
var knownProperties = map[string]bool{
	"publisher": true, "offer": true, "sku": true, "version": true, "os": true,
	"replicaLocations": true, "builder": true, "description": true,
	"buildResourceGroup": true, "tempResourceGroup": true, "location": true,
	"keyVault": true, "virtualNetwork": true, "virtualNetworkSubnet": true,
	"virtualNetworkResourceGroup": true, "alwaysBuild": true, "repos": true,
}

// Store loads gallery and image configuration from a repository checkout.
type Store struct {
	// Root is the repository root holding the gallery file.
	Root string
	// ImagesDir holds one subdirectory per image. Relative paths are
	// resolved against Root.
	ImagesDir string
}

// NewStore creates a Store for the repository at root.
func NewStore(root, imagesDir string) *Store {
	if imagesDir == "" {
		imagesDir = "images"
	}
	return &Store{Root: root, ImagesDir: imagesDir}
}

// ImagesRoot returns the absolute directory holding image subdirectories.
func (s *Store) ImagesRoot() string {
	if filepath.IsAbs(s.ImagesDir) {
		return s.ImagesDir
	}
	return filepath.Join(s.Root, s.ImagesDir)
}

// findConfig returns the single <base>.yaml or <base>.yml in dir. found is
// false when neither exists; both existing is a ConfigError.
func findConfig(dir, base string) (path string, found bool, err error) {
	yamlPath := filepath.Join(dir, base+".yaml")
	ymlPath := filepath.Join(dir, base+".yml")

	hasYAML := isFile(yamlPath)
	hasYML := isFile(ymlPath)

	switch {
	case hasYAML && hasYML:
		return "", false, errors.NewConfigError(dir, "found both '%s.yaml' and '%s.yml', only one %s yaml file allowed", base, base, base)
	case hasYAML:
		return yamlPath, true, nil
	case hasYML:
		return ymlPath, true, nil
	}
	return "", false, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func readMapping(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Path: path, Msg: "unable to read file", Err: err}
	}

	m := map[string]any{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &errors.ConfigError{Path: path, Msg: "invalid yaml", Err: err}
	}
	return m, nil
}

// LoadGallery reads gallery.yaml (or gallery.yml) from the repository root.
func (s *Store) LoadGallery() (GalleryDefinition, error) {
	path, found, err := findConfig(s.Root, GalleryFile)
	if err != nil {
		return GalleryDefinition{}, err
	}
	if !found {
		return GalleryDefinition{}, errors.NewConfigError(s.Root, "gallery.yaml or gallery.yml not found in the root of the repository")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return GalleryDefinition{}, &errors.ConfigError{Path: path, Msg: "unable to read file", Err: err}
	}

	var g GalleryDefinition
	if err := yaml.Unmarshal(data, &g); err != nil {
		return GalleryDefinition{}, &errors.ConfigError{Path: path, Msg: "invalid yaml", Err: err}
	}
	if err := g.Validate(path); err != nil {
		return GalleryDefinition{}, err
	}
	return g, nil
}

// LoadCommon reads the optional common images.yaml (or images.yml). A nil
// map with no error means no common file exists.
func (s *Store) LoadCommon() (map[string]any, error) {
	path, found, err := findConfig(s.ImagesRoot(), CommonFile)
	if err != nil || !found {
		return nil, err
	}

	common, err := readMapping(path)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(common))
	for k := range common {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !contains(CommonProperties, key) {
			return nil, errors.NewConfigError(path, "%s is not a permitted property%s", key, didYouMean(key, CommonProperties))
		}
	}
	return common, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Names lists the image directories that contain an image config file, in
// directory enumeration order.
func (s *Store) Names() ([]string, error) {
	root := s.ImagesRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &errors.ConfigError{Path: root, Msg: "unable to read images directory", Err: err}
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, found, _ := findConfig(filepath.Join(root, e.Name()), ImageFile); found || hasBothConfigs(filepath.Join(root, e.Name())) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// hasBothConfigs keeps ambiguous directories in Names so that loading
// them reports the duplicate instead of silently skipping the image.
func hasBothConfigs(dir string) bool {
	return isFile(filepath.Join(dir, ImageFile+".yaml")) && isFile(filepath.Join(dir, ImageFile+".yml"))
}

// LoadImage reads images/<name>/image.yaml (or image.yml), merges common
// properties underneath it and validates the result.
func (s *Store) LoadImage(name string, common map[string]any) (*ImageDefinition, error) {
	dir := filepath.Join(s.ImagesRoot(), name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		msg := fmt.Sprintf("directory for image %s not found", name)
		if names, nerr := s.Names(); nerr == nil {
			msg += didYouMean(name, names)
		}
		return nil, errors.NewConfigError(dir, "%s", msg)
	}

	path, found, err := findConfig(dir, ImageFile)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NewConfigError(dir, "image.yaml or image.yml not found")
	}

	raw, err := readMapping(path)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(common)+len(raw))
	for k, v := range common {
		merged[k] = v
	}
	for k, v := range raw {
		merged[k] = v
	}

	return decodeImage(name, dir, path, merged)
}

// decodeImage turns a merged property map into a validated ImageDefinition.
func decodeImage(name, dir, path string, merged map[string]any) (*ImageDefinition, error) {
	builderValue, _ := merged["builder"].(string)
	if v, ok := merged["builder"]; ok && v != nil {
		if _, isString := v.(string); !isString {
			return nil, errors.NewValidationError(name, "builder", "must be a string")
		}
	}
	b, err := NormalizeBuilder(builderValue)
	if err != nil {
		return nil, errors.NewValidationError(name, "builder", "%v", err)
	}
	merged["builder"] = string(b)

	for _, prop := range RequiredProperties {
		if isEmpty(merged[prop]) {
			return nil, errors.NewValidationError(name, prop, "image.yaml is missing a value for required property %s", prop)
		}
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, &errors.ConfigError{Path: path, Msg: "unable to normalize image properties", Err: err}
	}

	img := &ImageDefinition{}
	if err := yaml.Unmarshal(data, img); err != nil {
		return nil, &errors.ConfigError{Path: path, Msg: "invalid image properties", Err: err}
	}
	img.Name = name
	img.Path = dir

	osValue, err := ParseOS(string(img.OS))
	if err != nil {
		return nil, errors.NewValidationError(name, "os", "%v", err)
	}
	img.OS = osValue

	for k, v := range merged {
		if knownProperties[k] || k == "name" || k == "path" {
			continue
		}
		if img.Extra == nil {
			img.Extra = map[string]any{}
		}
		img.Extra[k] = v
	}
	return img, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// LoadAll loads every image found by Names.
func (s *Store) LoadAll(common map[string]any) ([]*ImageDefinition, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	return s.LoadNamed(names, common)
}

// LoadNamed loads the named images in the given order.
func (s *Store) LoadNamed(names []string, common map[string]any) ([]*ImageDefinition, error) {
	images := make([]*ImageDefinition, 0, len(names))
	for _, name := range names {
		img, err := s.LoadImage(name, common)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}
