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

// Package errors provides error wrapping utilities and the typed error
// taxonomy shared by every stage of an image build run.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps an error with a descriptive action and optional detail.
// It returns a formatted error in the form "failed to <action> [(<detail>)]: <error>".
//
// Example usage:
//
//	if err := store.LoadGallery(); err != nil {
//	    return errors.Wrap("load gallery", root, err)
//	}
func Wrap(action, detail string, err error) error {
	if err == nil {
		return nil
	}

	if detail != "" {
		return fmt.Errorf("failed to %s (%s): %w", action, detail, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// ConfigError reports malformed, missing, duplicate or disallowed
// configuration. It is fatal to the whole run and never retried.
type ConfigError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config error")
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for the given path.
func NewConfigError(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports an image descriptor that violates a required
// field or mutual-exclusion rule. Property names the offending key.
type ValidationError struct {
	Image    string
	Property string
	Msg      string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid image")
	if e.Image != "" {
		fmt.Fprintf(&b, " %q", e.Image)
	}
	if e.Property != "" {
		fmt.Fprintf(&b, ": property %q", e.Property)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

// NewValidationError creates a ValidationError for an image property.
func NewValidationError(image, property, format string, args ...any) *ValidationError {
	return &ValidationError{Image: image, Property: property, Msg: fmt.Sprintf(format, args...)}
}

// BackendError reports a failed call to the gallery, the az CLI or a local
// builder tool. Transient marks failures that may succeed when retried.
type BackendError struct {
	Op          string
	Image       string
	Transient   bool
	Remediation string
	Err         error
}

func (e *BackendError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Image != "" {
		fmt.Fprintf(&b, " for %s", e.Image)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Remediation != "" {
		fmt.Fprintf(&b, "\n\nRemediation: %s", e.Remediation)
	}
	return b.String()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsConfig reports whether err contains a ConfigError.
func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsValidation reports whether err contains a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsBackend reports whether err contains a BackendError.
func IsBackend(err error) bool {
	var target *BackendError
	return errors.As(err, &target)
}

// IsTransient reports whether err contains a BackendError marked transient.
func IsTransient(err error) bool {
	var target *BackendError
	if errors.As(err, &target) {
		return target.Transient
	}
	return false
}

// AsValidation returns the first ValidationError in err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var target *ValidationError
	ok := errors.As(err, &target)
	return target, ok
}
