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

// Package azure drives the Azure CLI for gallery queries, resource-group
// creation, template deployments and Azure Image Builder runs.
package azure

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/colbylwilliams/devbox-images/command"
	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/logging"
)

// ErrNotFound is returned when the az CLI reports ResourceNotFound.
var ErrNotFound = stderrors.New("resource not found")

// DefaultBinary is the az executable name.
const DefaultBinary = "az"

// CLI runs az commands through a command.Runner.
type CLI struct {
	runner       command.Runner
	binary       string
	subscription string
}

// Option configures a CLI.
type Option func(*CLI)

// WithBinary overrides the az executable path.
func WithBinary(path string) Option {
	return func(c *CLI) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithSubscription pins every command to a subscription.
func WithSubscription(id string) Option {
	return func(c *CLI) {
		c.subscription = id
	}
}

// New creates a CLI client.
func New(runner command.Runner, opts ...Option) *CLI {
	c := &CLI{runner: runner, binary: DefaultBinary}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscription returns the pinned subscription, if any.
func (c *CLI) Subscription() string {
	return c.subscription
}

// run executes az with JSON output and returns stdout. Failed commands
// become BackendErrors classified by their output.
func (c *CLI) run(ctx context.Context, op string, args ...string) (string, error) {
	full := append([]string{}, args...)
	full = append(full, "--only-show-errors", "--output", "json")
	if c.subscription != "" && !hasFlag(args, "--subscription") && acceptsSubscription(args) {
		full = append(full, "--subscription", c.subscription)
	}

	cmd := command.New(c.binary, full...)
	logging.DebugContext(ctx, "Running az command: %s", cmd)

	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return "", &errors.BackendError{Op: op, Err: err}
	}
	if !res.Success() {
		return "", classify(op, res)
	}
	return res.Output, nil
}

// runJSON executes az and decodes the JSON result into out.
func (c *CLI) runJSON(ctx context.Context, op string, out any, args ...string) error {
	stdout, err := c.run(ctx, op, args...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(stdout) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(stdout), out); err != nil {
		return &errors.BackendError{Op: op, Err: fmt.Errorf("unexpected az output: %w", err)}
	}
	return nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag || strings.HasPrefix(a, flag+"=") {
			return true
		}
	}
	return false
}

// acceptsSubscription reports whether the az command group takes a
// --subscription argument.
func acceptsSubscription(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "login", "account", "version", "bicep":
		return false
	}
	return true
}
