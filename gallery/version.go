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

	"github.com/Masterminds/semver/v3"

	"github.com/colbylwilliams/devbox-images/image"
	"github.com/colbylwilliams/devbox-images/logging"
)

// InitialVersion is published when "latest" is declared and the gallery
// has no versions yet.
const InitialVersion = "1.0.0"

// ParseVersion parses a gallery image version. "latest" returns nil.
func ParseVersion(version string) (*semver.Version, error) {
	return image.ParseVersion(version)
}

// LatestOf returns the highest version in versions, skipping entries that
// do not parse. It returns nil when none parse.
func LatestOf(ctx context.Context, versions []string) *semver.Version {
	var latest *semver.Version
	for _, v := range versions {
		ver, err := ParseVersion(v)
		if err != nil || ver == nil {
			logging.DebugContext(ctx, "Skipping gallery version %q: %v", v, err)
			continue
		}
		if latest == nil || ver.GreaterThan(latest) {
			latest = ver
		}
	}
	return latest
}

// Decision is the outcome of comparing a declared version to the gallery.
type Decision struct {
	BuildNeeded bool
	NextVersion string
	// Stale is set when the declared version is lower than the latest.
	Stale bool
}

// Decide compares the declared version (nil for "latest") with the latest
// existing version (nil when the definition has none):
//
//   - no existing version: build the declared version, or InitialVersion
//     for "latest";
//   - "latest": build the latest patch plus one;
//   - declared greater than latest: build the declared version;
//   - alwaysBuild: build the latest patch plus one;
//   - otherwise: no build. A declared version below latest is stale but
//     not an error.
func Decide(declared, latest *semver.Version, alwaysBuild bool) Decision {
	if latest == nil {
		if declared == nil {
			return Decision{BuildNeeded: true, NextVersion: InitialVersion}
		}
		return Decision{BuildNeeded: true, NextVersion: declared.String()}
	}

	if declared == nil {
		return Decision{BuildNeeded: true, NextVersion: latest.IncPatch().String()}
	}

	if declared.GreaterThan(latest) {
		return Decision{BuildNeeded: true, NextVersion: declared.String()}
	}

	stale := declared.LessThan(latest)
	if alwaysBuild {
		return Decision{BuildNeeded: true, NextVersion: latest.IncPatch().String(), Stale: stale}
	}
	return Decision{Stale: stale}
}
