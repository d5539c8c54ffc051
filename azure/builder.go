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

package azure

import (
	"context"
	stderrors "errors"
	"strings"
)

// Image Builder run states reported in lastRunStatus.runState.
const (
	RunStateRunning            = "Running"
	RunStateSucceeded          = "Succeeded"
	RunStatePartiallySucceeded = "PartiallySucceeded"
	RunStateFailed             = "Failed"
	RunStateCanceled           = "Canceled"
)

// TemplateStatus is the last run status of an image template.
type TemplateStatus struct {
	ID                string
	ProvisioningState string
	RunState          string
	RunSubState       string
	Message           string
}

// Terminal reports whether the run has finished.
func (s TemplateStatus) Terminal() bool {
	switch s.RunState {
	case RunStateSucceeded, RunStatePartiallySucceeded, RunStateFailed, RunStateCanceled:
		return true
	}
	return false
}

// Succeeded reports whether the run finished successfully.
func (s TemplateStatus) Succeeded() bool {
	return s.RunState == RunStateSucceeded || s.RunState == RunStatePartiallySucceeded
}

type templateJSON struct {
	ID                string `json:"id"`
	ProvisioningState string `json:"provisioningState"`
	LastRunStatus     *struct {
		RunState    string `json:"runState"`
		RunSubState string `json:"runSubState"`
		Message     string `json:"message"`
	} `json:"lastRunStatus"`
}

// CreateResourceGroup creates (or updates) a resource group.
func (c *CLI) CreateResourceGroup(ctx context.Context, name, location string) error {
	_, err := c.run(ctx, "create resource group",
		"group", "create", "--name", name, "--location", location)
	return err
}

// ImageTemplateExists reports whether an image template exists in group.
func (c *CLI) ImageTemplateExists(ctx context.Context, group, name string) (bool, error) {
	_, err := c.ImageTemplateStatus(ctx, group, name)
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// DeleteImageTemplate deletes an image template. Image Builder rejects
// updates to existing templates, so a rebuild into a persistent group
// must delete the previous one first.
func (c *CLI) DeleteImageTemplate(ctx context.Context, group, name string) error {
	_, err := c.run(ctx, "delete image template",
		"image", "builder", "delete", "--resource-group", group, "--name", name)
	if stderrors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// DeployTemplate runs a resource-group deployment of templateFile with
// the parameters in paramsFile.
func (c *CLI) DeployTemplate(ctx context.Context, group, deployment, templateFile, paramsFile string) error {
	_, err := c.run(ctx, "deploy image template",
		"deployment", "group", "create",
		"--name", deployment,
		"--resource-group", group,
		"--template-file", templateFile,
		"--parameters", "@"+paramsFile,
		"--no-prompt")
	return err
}

// RunImageTemplate starts an image template run without waiting for it.
func (c *CLI) RunImageTemplate(ctx context.Context, group, name string) error {
	_, err := c.run(ctx, "run image template",
		"image", "builder", "run", "--resource-group", group, "--name", name, "--no-wait")
	return err
}

// ImageTemplateStatus returns the template ID and last run status.
func (c *CLI) ImageTemplateStatus(ctx context.Context, group, name string) (TemplateStatus, error) {
	var t templateJSON
	err := c.runJSON(ctx, "show image template", &t,
		"image", "builder", "show", "--resource-group", group, "--name", name)
	if err != nil {
		return TemplateStatus{}, err
	}

	status := TemplateStatus{ID: t.ID, ProvisioningState: t.ProvisioningState}
	if t.LastRunStatus != nil {
		status.RunState = t.LastRunStatus.RunState
		status.RunSubState = t.LastRunStatus.RunSubState
		status.Message = strings.TrimSpace(t.LastRunStatus.Message)
	}
	return status, nil
}
