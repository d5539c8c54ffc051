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

// Package command runs the external tools the build pipeline drives,
// such as the az CLI and packer, and captures their exit status and output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/colbylwilliams/devbox-images/logging"
)

// Cmd describes a single external process invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
	// Stream mirrors combined output to the runner's stream writer
	// while still capturing it.
	Stream bool
}

// New creates a Cmd for the named program.
func New(name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args}
}

// String returns the command line with sensitive values masked.
func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(logging.RedactArgs(c.Args), " "))
}

// Result is the outcome of a process that started.
type Result struct {
	ExitCode int
	Output   string
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes commands. A non-zero exit status is reported through
// Result rather than as an error; errors mean the process could not be
// run at all or the context ended first.
type Runner interface {
	Run(ctx context.Context, c Cmd) (Result, error)
}

// ExecRunner runs commands as local processes.
type ExecRunner struct {
	// StreamTo receives output of commands with Stream set.
	StreamTo io.Writer
}

// NewExecRunner creates an ExecRunner that streams to w.
func NewExecRunner(w io.Writer) *ExecRunner {
	return &ExecRunner{StreamTo: w}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if c.Name == "" {
		return Result{}, errors.New("command not set")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}

	var b bytes.Buffer
	var out io.Writer = &b
	if c.Stream && r.StreamTo != nil {
		out = io.MultiWriter(&b, r.StreamTo)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	logging.DebugContext(ctx, "Running: %s", c)
	err := cmd.Run()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			logging.WarnContext(ctx, "Command timed out: %s", c.Name)
		} else {
			logging.WarnContext(ctx, "Command was cancelled: %s", c.Name)
		}
		return Result{ExitCode: -1, Output: b.String()}, ctxErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode(), Output: b.String()}, nil
		}
		return Result{ExitCode: -1, Output: b.String()}, fmt.Errorf("failed to run %s: %w", c.Name, err)
	}

	return Result{Output: b.String()}, nil
}
