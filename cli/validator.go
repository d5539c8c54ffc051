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

package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/colbylwilliams/devbox-images/image"
)

// MaxSuffixLength keeps temporary resource group names well under the
// 90 character Azure limit.
const MaxSuffixLength = 24

var suffixPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Output formats accepted by the images command.
var outputFormats = []string{"json", "table", "matrix"}

// Validator validates CLI input before passing to business logic.
type Validator struct {
	// known is the set of image names in the repository. Empty disables
	// name checks.
	known []string
}

// NewValidator creates a validator that checks names against known.
func NewValidator(known []string) *Validator {
	return &Validator{known: known}
}

// ValidateBuildOptions validates build command options for correctness
// and consistency.
func (v *Validator) ValidateBuildOptions(opts BuildCLIOptions) error {
	if err := v.validateSelection(opts.Selection()); err != nil {
		return err
	}

	if err := ValidateSuffix(opts.Suffix); err != nil {
		return err
	}

	if opts.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", opts.Concurrency)
	}

	return nil
}

// ValidateImagesOptions validates images command options.
func (v *Validator) ValidateImagesOptions(opts ImagesCLIOptions) error {
	if err := v.validateSelection(opts.Selection()); err != nil {
		return err
	}

	for _, f := range outputFormats {
		if opts.Format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format: %s (supported: %s)", opts.Format, strings.Join(outputFormats, ", "))
}

// validateSelection checks that names exist and that only one selection
// mode is used.
func (v *Validator) validateSelection(sel Selection) error {
	if len(sel.Images) > 0 && sel.ByChanges() {
		return fmt.Errorf("--images cannot be combined with --changes or --changes-from")
	}

	for _, name := range sel.Images {
		if err := v.validateImageName(name); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateImageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("image name must not be empty")
	}
	if len(v.known) == 0 {
		return nil
	}
	for _, k := range v.known {
		if k == name {
			return nil
		}
	}

	msg := fmt.Sprintf("unknown image %q", name)
	if s := image.Suggest(name, v.known); len(s) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(s, ", "))
	}
	return fmt.Errorf("%s", msg)
}

// ValidateSuffix checks a resource group suffix.
func ValidateSuffix(suffix string) error {
	if suffix == "" {
		return fmt.Errorf("suffix must not be empty")
	}
	if len(suffix) > MaxSuffixLength {
		return fmt.Errorf("suffix %q is longer than %d characters", suffix, MaxSuffixLength)
	}
	if !suffixPattern.MatchString(suffix) {
		return fmt.Errorf("invalid suffix %q (letters, digits, '-' and '_' only)", suffix)
	}
	return nil
}
