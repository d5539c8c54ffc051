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

// Package cli validates command-line input and formats command output.
//
// It sits between the cobra commands and the build pipeline: options are
// checked here before any configuration is loaded from Azure, and reports
// are rendered here once a run finishes.
package cli

// BuildCLIOptions defines command-line options for the build command.
type BuildCLIOptions struct {
	// Images selects images by name. Empty selects every image.
	Images []string

	// Changes selects the images whose directories contain these paths.
	Changes []string

	// ChangesFrom selects images changed between this git revision and HEAD.
	ChangesFrom string

	// Suffix is appended to temporary resource group names.
	Suffix string

	// Build executes builds. Without it the run only prepares inputs.
	Build bool

	// Async dispatches images concurrently.
	Async bool

	// Concurrency bounds concurrent dispatch.
	Concurrency int
}

// ImagesCLIOptions defines command-line options for the images command.
type ImagesCLIOptions struct {
	Images      []string
	Changes     []string
	ChangesFrom string

	// Resolve queries the gallery and keeps only images that need a build.
	Resolve bool

	// Format is the output format: json, table or matrix.
	Format string
}

// Selection is the image-selection part shared by both commands.
type Selection struct {
	Images      []string
	Changes     []string
	ChangesFrom string
}

// Selection returns the image-selection options.
func (o BuildCLIOptions) Selection() Selection {
	return Selection{Images: o.Images, Changes: o.Changes, ChangesFrom: o.ChangesFrom}
}

// Selection returns the image-selection options.
func (o ImagesCLIOptions) Selection() Selection {
	return Selection{Images: o.Images, Changes: o.Changes, ChangesFrom: o.ChangesFrom}
}

// ByChanges reports whether images are selected by changed paths.
func (s Selection) ByChanges() bool {
	return len(s.Changes) > 0 || s.ChangesFrom != ""
}
