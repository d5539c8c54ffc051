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
	"path/filepath"
	"strings"
)

// DefaultSharedPaths are repository paths used by every image, so a change
// under any of them selects all images.
var DefaultSharedPaths = []string{"scripts/"}

// SelectChanged keeps the images affected by the changed paths. Paths are
// relative to root using forward slashes, as reported by git. An image is
// affected when a path lies inside its directory; a path under one of the
// shared prefixes affects every image.
func SelectChanged(root string, images []*ImageDefinition, changes, sharedPaths []string) []*ImageDefinition {
	if len(changes) == 0 {
		return nil
	}

	for _, c := range changes {
		c = normalizeChange(c)
		for _, shared := range sharedPaths {
			if strings.HasPrefix(c, strings.TrimPrefix(filepath.ToSlash(shared), "./")) {
				return images
			}
		}
	}

	var selected []*ImageDefinition
	for _, img := range images {
		rel, err := filepath.Rel(root, img.Path)
		if err != nil {
			continue
		}
		prefix := filepath.ToSlash(rel) + "/"
		for _, c := range changes {
			if strings.HasPrefix(normalizeChange(c), prefix) {
				selected = append(selected, img)
				break
			}
		}
	}
	return selected
}

func normalizeChange(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(p)), "./")
}
