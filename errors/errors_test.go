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

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	baseErr := errors.New("something went wrong")

	tests := []struct {
		name     string
		action   string
		detail   string
		err      error
		expected string
	}{
		{
			name:     "wrap with action only",
			action:   "load gallery",
			err:      baseErr,
			expected: "failed to load gallery: something went wrong",
		},
		{
			name:     "wrap with action and detail",
			action:   "parse image config",
			detail:   "images/vscode/image.yaml",
			err:      baseErr,
			expected: "failed to parse image config (images/vscode/image.yaml): something went wrong",
		},
		{
			name:   "wrap nil error returns nil",
			action: "do something",
			detail: "details",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrap(tt.action, tt.detail, tt.err)
			if tt.err == nil {
				assert.NoError(t, result)
				return
			}

			require.Error(t, result)
			assert.Equal(t, tt.expected, result.Error())
			assert.ErrorIs(t, result, baseErr)
		})
	}
}

func TestTaxonomyHelpers(t *testing.T) {
	cause := errors.New("connection reset by peer")

	tests := []struct {
		name       string
		err        error
		config     bool
		validation bool
		backend    bool
		transient  bool
	}{
		{
			name:   "config error",
			err:    NewConfigError("gallery.yaml", "missing required property %q", "name"),
			config: true,
		},
		{
			name:       "validation error wrapped",
			err:        Wrap("load image", "vscode", NewValidationError("vscode", "sku", "required property is missing")),
			validation: true,
		},
		{
			name:      "transient backend error",
			err:       &BackendError{Op: "list image versions", Image: "vscode", Transient: true, Err: cause},
			backend:   true,
			transient: true,
		},
		{
			name:    "permanent backend error",
			err:     fmt.Errorf("outer: %w", &BackendError{Op: "run packer", Err: cause}),
			backend: true,
		},
		{
			name: "plain error",
			err:  cause,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.config, IsConfig(tt.err))
			assert.Equal(t, tt.validation, IsValidation(tt.err))
			assert.Equal(t, tt.backend, IsBackend(tt.err))
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cfgErr := &ConfigError{Path: "images/images.yaml", Msg: "key not allowed", Err: errors.New("sku")}
	assert.Equal(t, "config error (images/images.yaml): key not allowed: sku", cfgErr.Error())
	assert.EqualError(t, errors.Unwrap(cfgErr), "sku")

	valErr := NewValidationError("vscode", "builder", "unknown builder %q", "foo")
	assert.Equal(t, `invalid image "vscode": property "builder": unknown builder "foo"`, valErr.Error())

	got, ok := AsValidation(Wrap("resolve", "", valErr))
	require.True(t, ok)
	assert.Equal(t, "builder", got.Property)

	backendErr := &BackendError{Op: "deploy template", Image: "vscode", Err: errors.New("boom"), Remediation: "run az login"}
	assert.Equal(t, "deploy template for vscode: boom\n\nRemediation: run az login", backendErr.Error())
}
