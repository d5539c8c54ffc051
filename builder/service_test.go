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

package builder

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/image"
)

type mockResolver struct {
	mu          sync.Mutex
	resolveFunc func(img *image.ImageDefinition) (image.Resolution, error)
	calls       []string
}

func (m *mockResolver) Resolve(_ context.Context, img *image.ImageDefinition, _ image.GalleryDefinition) (image.Resolution, error) {
	m.mu.Lock()
	m.calls = append(m.calls, img.Name)
	m.mu.Unlock()
	if m.resolveFunc != nil {
		return m.resolveFunc(img)
	}
	return image.Resolution{BuildNeeded: true, NextVersion: img.Version, DefinitionLocation: "eastus"}, nil
}

var serviceGallery = image.GalleryDefinition{Name: "gal1", ResourceGroup: "gallery-rg"}

func definition(name string) *image.ImageDefinition {
	return &image.ImageDefinition{
		Name: name, Builder: image.BuilderLocal, Version: "1.0.0",
		Publisher: "Contoso", Offer: "DevBox", SKU: name, OS: image.Windows,
		ReplicaLocations: []string{"eastus"},
	}
}

func TestBuildService_Plan(t *testing.T) {
	resolver := &mockResolver{resolveFunc: func(img *image.ImageDefinition) (image.Resolution, error) {
		if img.Name == "current" {
			return image.Resolution{LatestVersion: "1.0.0", DefinitionLocation: "westus3"}, nil
		}
		return image.Resolution{BuildNeeded: true, NextVersion: "1.0.0", DefinitionLocation: "eastus"}, nil
	}}
	svc := NewBuildService(resolver, NewDispatcher(nil))

	plan, err := svc.Plan(context.Background(),
		[]*image.ImageDefinition{definition("vscode"), definition("current")},
		serviceGallery, "202401010000", Options{Concurrent: true})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)

	first := plan.Entries[0].Image
	require.NotNil(t, first)
	assert.Equal(t, "gal1-vscode-202401010000", first.ResourceGroupName)
	assert.True(t, first.ResourceGroupIsTemporary)
	assert.Equal(t, "eastus", first.Location)

	second := plan.Entries[1].Image
	require.NotNil(t, second)
	assert.False(t, second.BuildNeeded)
	assert.Equal(t, "westus3", second.Location, "location is resolved even when no build is needed")

	assert.Len(t, plan.Resolved(), 2)
	assert.Len(t, plan.BuildNeeded(), 1)
	assert.NotEmpty(t, plan.RunID)
}

func TestBuildService_PlanValidationAbortsRun(t *testing.T) {
	bad := definition("bad")
	bad.BuildResourceGroup = "rg1"
	bad.Location = "eastus"
	version := definition("version")
	version.Version = "1.x"

	resolver := &mockResolver{}
	local := &mockAdapter{}
	svc := NewBuildService(resolver, NewDispatcher(map[image.Builder]Adapter{image.BuilderLocal: local}))

	report, err := svc.Run(context.Background(),
		[]*image.ImageDefinition{definition("ok"), bad, version},
		serviceGallery, "s", Options{ExecuteBuild: true})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), `invalid image "bad"`)
	assert.Contains(t, err.Error(), `invalid image "version"`)
	assert.Empty(t, resolver.calls, "the gallery is not queried for an invalid run")
	assert.Empty(t, local.prepared, "no backend is touched for an invalid run")
}

func TestBuildService_PlanRejectsBeforeResolving(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(img *image.ImageDefinition)
		wantProperty string
	}{
		{
			name: "persistent group with location",
			mutate: func(img *image.ImageDefinition) {
				img.BuildResourceGroup = "rg-build"
				img.Location = "westus"
			},
			wantProperty: "location",
		},
		{
			name: "both resource groups",
			mutate: func(img *image.ImageDefinition) {
				img.BuildResourceGroup = "rg-build"
				img.TempResourceGroup = "rg-tmp"
			},
			wantProperty: "buildResourceGroup",
		},
		{
			name:         "malformed version",
			mutate:       func(img *image.ImageDefinition) { img.Version = "one" },
			wantProperty: "version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := definition("vscode")
			tt.mutate(img)
			resolver := &mockResolver{}
			svc := NewBuildService(resolver, NewDispatcher(nil))

			plan, err := svc.Plan(context.Background(), []*image.ImageDefinition{definition("ok"), img},
				serviceGallery, "s", Options{Concurrent: true})
			require.Error(t, err)
			assert.Nil(t, plan)

			ve, ok := errors.AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantProperty, ve.Property)
			assert.Empty(t, resolver.calls, "no definition can be created for an invalid run")
		})
	}
}

func TestBuildService_ResolverValidationAbortsRun(t *testing.T) {
	resolver := &mockResolver{resolveFunc: func(img *image.ImageDefinition) (image.Resolution, error) {
		return image.Resolution{}, errors.NewValidationError(img.Name, "sku", "clashes with an existing definition")
	}}
	local := &mockAdapter{}
	svc := NewBuildService(resolver, NewDispatcher(map[image.Builder]Adapter{image.BuilderLocal: local}))

	_, err := svc.Run(context.Background(), []*image.ImageDefinition{definition("vscode")},
		serviceGallery, "s", Options{ExecuteBuild: true})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, local.prepared)
}

func TestBuildService_BackendErrorIsPerImage(t *testing.T) {
	resolver := &mockResolver{resolveFunc: func(img *image.ImageDefinition) (image.Resolution, error) {
		if img.Name == "flaky" {
			return image.Resolution{}, &errors.BackendError{Op: "list image versions", Image: img.Name, Err: stderrors.New("throttled")}
		}
		return image.Resolution{BuildNeeded: true, NextVersion: "1.0.0", DefinitionLocation: "eastus"}, nil
	}}
	local := &mockAdapter{}
	svc := NewBuildService(resolver, NewDispatcher(map[image.Builder]Adapter{image.BuilderLocal: local}))

	report, err := svc.Run(context.Background(),
		[]*image.ImageDefinition{definition("a"), definition("flaky"), definition("c")},
		serviceGallery, "s", Options{Concurrent: true, ExecuteBuild: true})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)

	assert.Equal(t, "a", report.Outcomes[0].Image)
	assert.Equal(t, StatusSucceeded, report.Outcomes[0].Status)
	assert.Equal(t, "flaky", report.Outcomes[1].Image)
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
	assert.Contains(t, report.Outcomes[1].ErrorDetail, "throttled")
	assert.Equal(t, "c", report.Outcomes[2].Image)
	assert.Equal(t, StatusSucceeded, report.Outcomes[2].Status)
	assert.False(t, report.Success())
	assert.ElementsMatch(t, []string{"a", "c"}, local.executed)
}

func TestBuildService_ReportCarriesPlanRunID(t *testing.T) {
	svc := NewBuildService(&mockResolver{}, NewDispatcher(map[image.Builder]Adapter{image.BuilderLocal: &mockAdapter{}}))
	plan, err := svc.Plan(context.Background(), []*image.ImageDefinition{definition("a")}, serviceGallery, "s", Options{})
	require.NoError(t, err)

	report := svc.Dispatch(context.Background(), plan, Options{})
	assert.Equal(t, plan.RunID, report.RunID)
	assert.Equal(t, StatusSkipped, report.Outcomes[0].Status)
	assert.Equal(t, NoteExecutionSkipped, report.Outcomes[0].Note)
}
