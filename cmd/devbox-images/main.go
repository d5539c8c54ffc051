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

// Package main implements the devbox-images CLI, which builds Dev Box
// images with packer or Azure Image Builder and publishes them to an
// Azure compute gallery.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/colbylwilliams/devbox-images/errors"
)

// Process exit codes.
const (
	exitError       = 1
	exitBuildFailed = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(exitCode(err))
	}
}

// buildFailedError reports a run in which at least one image failed.
type buildFailedError struct {
	failed int
	total  int
}

func (e *buildFailedError) Error() string {
	return fmt.Sprintf("%d of %d images failed", e.failed, e.total)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var bf *buildFailedError
	if stderrors.As(err, &bf) {
		return exitBuildFailed
	}
	return exitError
}

// errorHint returns a next step for errors the user fixes in the
// repository rather than by retrying.
func errorHint(err error) string {
	if ve, ok := errors.AsValidation(err); ok {
		if ve.Image == "" {
			return "Fix the image configuration and run again."
		}
		return fmt.Sprintf("Fix %q in images/%s/image.yaml (or the shared images.yaml) and run again.", ve.Property, ve.Image)
	}
	if errors.IsConfig(err) {
		return "Check gallery.yaml, images.yaml and the image.yaml files named above."
	}
	return ""
}
