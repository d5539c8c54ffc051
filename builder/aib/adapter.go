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

// Package aib builds images with Azure Image Builder. Each image directory
// holds a bicep template that declares the image template; the adapter
// deploys it into the build resource group, starts a run and waits for the
// run to finish.
package aib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/colbylwilliams/devbox-images/azure"
	"github.com/colbylwilliams/devbox-images/builder"
	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/image"
	"github.com/colbylwilliams/devbox-images/logging"
)

// Defaults for template lookup and run polling.
const (
	DefaultTemplateFile = "image.bicep"
	DefaultPollInterval = 30 * time.Second
	DefaultTimeout      = 4 * time.Hour
)

// TemplateClient is the slice of the Azure control plane the adapter uses.
// *azure.CLI implements it.
type TemplateClient interface {
	CreateResourceGroup(ctx context.Context, name, location string) error
	ImageTemplateExists(ctx context.Context, group, name string) (bool, error)
	DeleteImageTemplate(ctx context.Context, group, name string) error
	DeployTemplate(ctx context.Context, group, deployment, templateFile, paramsFile string) error
	RunImageTemplate(ctx context.Context, group, name string) error
	ImageTemplateStatus(ctx context.Context, group, name string) (azure.TemplateStatus, error)
}

// Adapter implements builder.Adapter for Azure Image Builder.
type Adapter struct {
	client       TemplateClient
	templateFile string
	pollInterval time.Duration
	timeout      time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTemplateFile sets the template used when an image directory has no
// image.bicep of its own.
func WithTemplateFile(path string) Option {
	return func(a *Adapter) {
		if path != "" {
			a.templateFile = path
		}
	}
}

// WithPollInterval sets how often run status is checked.
func WithPollInterval(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// WithTimeout bounds how long a run is waited for.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAdapter creates an Image Builder Adapter.
func NewAdapter(client TemplateClient, opts ...Option) *Adapter {
	a := &Adapter{
		client:       client,
		templateFile: DefaultTemplateFile,
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements builder.Adapter.
func (a *Adapter) Name() string {
	return "azure image builder"
}

// Prepare implements builder.Adapter. It writes ParamsFile with the image
// name parameter.
func (a *Adapter) Prepare(ctx context.Context, img *image.ResolvedImage) (*builder.Artifact, error) {
	data, err := NewParameters(map[string]any{"image": img.Name}).Marshal()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(img.Path, ParamsFile)
	logging.DebugContext(ctx, "Writing %s", path)
	return builder.WriteArtifact(path, data)
}

// templatePath returns the image's own image.bicep when present and the
// configured template otherwise.
func (a *Adapter) templatePath(img *image.ResolvedImage) string {
	own := filepath.Join(img.Path, DefaultTemplateFile)
	if info, err := os.Stat(own); err == nil && !info.IsDir() {
		return own
	}
	return a.templateFile
}

// Execute implements builder.Adapter. It returns when the Image Builder
// run reaches a terminal state, the timeout passes or ctx ends.
func (a *Adapter) Execute(ctx context.Context, img *image.ResolvedImage) builder.Outcome {
	out := builder.Outcome{Image: img.Name, Builder: img.Builder, Version: img.PublishVersion()}
	group := img.ResourceGroupName

	if err := a.prepareGroup(ctx, img); err != nil {
		return failed(out, err)
	}

	logging.InfoContext(ctx, "Deploying image template %s to %s", img.Name, group)
	if err := a.client.DeployTemplate(ctx, group, img.Name, a.templatePath(img), filepath.Join(img.Path, ParamsFile)); err != nil {
		return failed(out, errors.Wrap("deploy image template", img.Name, err))
	}

	status, err := a.client.ImageTemplateStatus(ctx, group, img.Name)
	if err != nil {
		return failed(out, errors.Wrap("read image template", img.Name, err))
	}

	logging.InfoContext(ctx, "Starting image template run")
	if err := a.client.RunImageTemplate(ctx, group, img.Name); err != nil {
		return failed(out, errors.Wrap("run image template", img.Name, err))
	}
	out.ExternalBuildID = status.ID

	final, err := a.wait(ctx, group, img.Name)
	if err != nil {
		return failed(out, err)
	}
	if !final.Succeeded() {
		return failed(out, fmt.Errorf("image builder run %s: %s", final.RunState, valueOr(final.Message, "no message")))
	}

	out.Status = builder.StatusSucceeded
	return out
}

// prepareGroup creates a temporary group, or clears a same-name template
// from a persistent one since Image Builder cannot update a template in
// place.
func (a *Adapter) prepareGroup(ctx context.Context, img *image.ResolvedImage) error {
	group := img.ResourceGroupName

	if img.ResourceGroupIsTemporary {
		logging.InfoContext(ctx, "Creating temporary resource group %s in %s", group, img.Location)
		if err := a.client.CreateResourceGroup(ctx, group, img.Location); err != nil {
			return errors.Wrap("create resource group", group, err)
		}
		return nil
	}

	exists, err := a.client.ImageTemplateExists(ctx, group, img.Name)
	if err != nil {
		return errors.Wrap("check for existing image template", img.Name, err)
	}
	if !exists {
		return nil
	}

	logging.InfoContext(ctx, "Deleting existing image template %s from %s", img.Name, group)
	if err := a.client.DeleteImageTemplate(ctx, group, img.Name); err != nil {
		return errors.Wrap("delete existing image template", img.Name, err)
	}
	return nil
}

// wait polls the run status until it is terminal. Transient status errors
// are tolerated; others end the wait.
func (a *Adapter) wait(ctx context.Context, group, name string) (azure.TemplateStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return azure.TemplateStatus{}, fmt.Errorf("waiting for image builder run: %w", ctx.Err())
		case <-ticker.C:
		}

		status, err := a.client.ImageTemplateStatus(ctx, group, name)
		if err != nil {
			if errors.IsTransient(err) {
				logging.WarnContext(ctx, "Failed to read run status, retrying: %v", err)
				continue
			}
			return azure.TemplateStatus{}, errors.Wrap("read run status", name, err)
		}

		if state := status.RunState + "/" + status.RunSubState; state != last {
			logging.InfoContext(ctx, "Image builder run: %s %s", status.RunState, status.RunSubState)
			last = state
		}
		if status.Terminal() {
			return status, nil
		}
	}
}

func failed(out builder.Outcome, err error) builder.Outcome {
	out.Status = builder.StatusFailed
	out.ErrorDetail = err.Error()
	return out
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
