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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colbylwilliams/devbox-images/command"
	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/gallery"
	"github.com/colbylwilliams/devbox-images/image"
)

var _ gallery.Client = (*CLI)(nil)

var testGallery = image.GalleryDefinition{Name: "gal1", ResourceGroup: "gallery-rg"}

func ok(out string) command.Response {
	return command.Response{Result: command.Result{Output: out}}
}

func fail(out string) command.Response {
	return command.Response{Result: command.Result{ExitCode: 1, Output: out}}
}

func TestCLI_ListImageDefinitions(t *testing.T) {
	runner := command.NewFakeRunner().On("az sig image-definition list", ok(`[
		{"name": "vscode", "id": "/defs/vscode", "location": "eastus", "osType": "Windows",
		 "identifier": {"publisher": "Contoso", "offer": "DevBox", "sku": "vscode"}}
	]`))

	defs, err := New(runner).ListImageDefinitions(context.Background(), testGallery)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, gallery.Definition{
		Name: "vscode", ID: "/defs/vscode", Location: "eastus",
		Publisher: "Contoso", Offer: "DevBox", SKU: "vscode", OSType: "Windows",
	}, defs[0])

	line := runner.Lines()[0]
	assert.Contains(t, line, "--resource-group gallery-rg --gallery-name gal1")
	assert.Contains(t, line, "--only-show-errors --output json")
}

func TestCLI_ListImageVersions(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		runner := command.NewFakeRunner().On("az sig image-version list", ok(`["1.0.0", "1.0.1"]`))
		versions, err := New(runner).ListImageVersions(context.Background(), testGallery, "vscode")
		require.NoError(t, err)
		assert.Equal(t, []string{"1.0.0", "1.0.1"}, versions)
		assert.Contains(t, runner.Lines()[0], "--query [].name")
	})

	t.Run("missing definition has no versions", func(t *testing.T) {
		runner := command.NewFakeRunner().On("az sig image-version list",
			fail("ERROR: (ResourceNotFound) The Resource 'vscode' under resource group 'gallery-rg' was not found."))
		versions, err := New(runner).ListImageVersions(context.Background(), testGallery, "vscode")
		require.NoError(t, err)
		assert.Empty(t, versions)
	})
}

func TestCLI_CreateImageDefinition(t *testing.T) {
	runner := command.NewFakeRunner().On("az sig image-definition create", ok(`{"name": "vscode", "id": "/defs/vscode", "location": "eastus"}`))
	img := &image.ImageDefinition{
		Name: "vscode", Publisher: "Contoso", Offer: "DevBox", SKU: "vscode",
		OS: image.Windows, Description: "VS Code box",
	}

	def, err := New(runner).CreateImageDefinition(context.Background(), testGallery, img, "eastus")
	require.NoError(t, err)
	assert.Equal(t, "/defs/vscode", def.ID)

	line := runner.Lines()[0]
	for _, want := range []string{
		"--gallery-image-definition vscode",
		"--os-type Windows",
		"--hyper-v-generation V2",
		"--features SecurityType=TrustedLaunch",
		"--location eastus",
		"--description VS Code box",
	} {
		assert.Contains(t, line, want)
	}
}

func TestCLI_Subscription(t *testing.T) {
	runner := command.NewFakeRunner()
	New(runner, WithSubscription("sub-1")).ListImageDefinitions(context.Background(), testGallery) //nolint:errcheck
	require.Len(t, runner.Calls, 1)
	assert.True(t, strings.HasSuffix(runner.Lines()[0], "--subscription sub-1"))

	runner = command.NewFakeRunner()
	New(runner, WithSubscription("sub-1")).LoginIdentity(context.Background()) //nolint:errcheck
	assert.NotContains(t, runner.Lines()[0], "--subscription")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		wantNotFound  bool
		wantTransient bool
		wantRemedy    string
	}{
		{name: "not found", output: "ERROR: (ResourceNotFound) nope", wantNotFound: true},
		{name: "throttled", output: "ERROR: (TooManyRequests) slow down", wantTransient: true},
		{name: "server error", output: "ERROR: (InternalServerError) oops", wantTransient: true},
		{name: "connection reset", output: "Connection reset by peer", wantTransient: true},
		{name: "login", output: "ERROR: Please run 'az login' to setup account.", wantRemedy: "az login"},
		{name: "authorization", output: "ERROR: (AuthorizationFailed) no access", wantRemedy: "Contributor"},
		{name: "other", output: "ERROR: something else"},
		{
			name:   "status code inside a resource ID is not throttling",
			output: "ERROR: (InvalidTemplate) Deployment template validation failed for /subscriptions/3f2a4290-1c2d-4e5f-8a9b-0c1d2e3f4a5b/resourceGroups/rg",
		},
		{
			name:   "timed out inside a message is not transient",
			output: "ERROR: (InvalidParameter) property 'timed out' is not allowed in /subscriptions/00000000-0000-0000-0000-000000000429",
		},
		{name: "http status 429", output: "ERROR: Operation returned an invalid status code: Status 429", wantTransient: true},
		{name: "status code 503", output: "ERROR: status code: 503, retry later", wantTransient: true},
		{name: "throttled message", output: "ERROR: request was throttled by the server", wantTransient: true},
		{name: "read timed out", output: "ERROR: HTTPSConnectionPool: Read timed out. (read timeout=300)", wantTransient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", command.Result{ExitCode: 1, Output: tt.output})
			require.Error(t, err)
			assert.True(t, errors.IsBackend(err))
			assert.Equal(t, tt.wantNotFound, stderrors.Is(err, ErrNotFound))
			assert.Equal(t, tt.wantTransient, errors.IsTransient(err))

			var be *errors.BackendError
			require.True(t, stderrors.As(err, &be))
			if tt.wantRemedy == "" {
				assert.Empty(t, be.Remediation)
			} else {
				assert.Contains(t, be.Remediation, tt.wantRemedy)
			}
		})
	}
}

func TestCLI_RunnerError(t *testing.T) {
	runner := command.NewFakeRunner().On("az", command.Response{Err: stderrors.New("executable file not found")})
	_, err := New(runner).GetGallery(context.Background(), testGallery)
	require.Error(t, err)
	assert.True(t, errors.IsBackend(err))
	assert.False(t, errors.IsTransient(err))
}

func TestCLI_UnexpectedOutput(t *testing.T) {
	runner := command.NewFakeRunner().On("az sig show", ok("not json"))
	_, err := New(runner).GetGallery(context.Background(), testGallery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected az output")
}

func TestCLI_ImageTemplates(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		runner := command.NewFakeRunner().On("az image builder show", ok(`{
			"id": "/templates/vscode", "provisioningState": "Succeeded",
			"lastRunStatus": {"runState": "Running", "runSubState": "Building", "message": ""}}`))
		status, err := New(runner).ImageTemplateStatus(context.Background(), "rg", "vscode")
		require.NoError(t, err)
		assert.Equal(t, "/templates/vscode", status.ID)
		assert.Equal(t, RunStateRunning, status.RunState)
		assert.False(t, status.Terminal())
	})

	t.Run("exists", func(t *testing.T) {
		runner := command.NewFakeRunner().On("az image builder show", fail("(ResourceNotFound) missing"))
		exists, err := New(runner).ImageTemplateExists(context.Background(), "rg", "vscode")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("delete missing is not an error", func(t *testing.T) {
		runner := command.NewFakeRunner().On("az image builder delete", fail("(ResourceNotFound) missing"))
		require.NoError(t, New(runner).DeleteImageTemplate(context.Background(), "rg", "vscode"))
	})

	t.Run("deploy and run", func(t *testing.T) {
		runner := command.NewFakeRunner()
		cli := New(runner)
		require.NoError(t, cli.CreateResourceGroup(context.Background(), "gal1-vscode-abc", "eastus"))
		require.NoError(t, cli.DeployTemplate(context.Background(), "gal1-vscode-abc", "vscode", "image.bicep", "/tmp/image.parameters.json"))
		require.NoError(t, cli.RunImageTemplate(context.Background(), "gal1-vscode-abc", "vscode"))

		lines := runner.Lines()
		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "az group create --name gal1-vscode-abc --location eastus")
		assert.Contains(t, lines[1], "--template-file image.bicep --parameters @/tmp/image.parameters.json --no-prompt")
		assert.Contains(t, lines[2], "az image builder run --resource-group gal1-vscode-abc --name vscode --no-wait")
	})
}

func TestTemplateStatus(t *testing.T) {
	for state, want := range map[string][2]bool{
		RunStateRunning:            {false, false},
		RunStateSucceeded:          {true, true},
		RunStatePartiallySucceeded: {true, true},
		RunStateFailed:             {true, false},
		RunStateCanceled:           {true, false},
		"":                         {false, false},
	} {
		s := TemplateStatus{RunState: state}
		assert.Equal(t, want[0], s.Terminal(), state)
		assert.Equal(t, want[1], s.Succeeded(), state)
	}
}

func TestCLI_ResolveSubscription(t *testing.T) {
	t.Run("pinned", func(t *testing.T) {
		t.Setenv(SubscriptionEnvVar, "env-sub")
		sub, err := New(command.NewFakeRunner(), WithSubscription("pinned")).ResolveSubscription(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "pinned", sub)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(SubscriptionEnvVar, "env-sub")
		sub, err := New(command.NewFakeRunner()).ResolveSubscription(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "env-sub", sub)
	})

	t.Run("clouds config", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(SubscriptionEnvVar, "")
		t.Setenv("AZURE_CONFIG_DIR", dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "clouds.config"),
			[]byte("[AzureCloud]\nsubscription = cfg-sub\n"), 0o644))

		runner := command.NewFakeRunner()
		sub, err := New(runner).ResolveSubscription(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cfg-sub", sub)
		assert.Empty(t, runner.Calls)
	})

	t.Run("account show", func(t *testing.T) {
		t.Setenv(SubscriptionEnvVar, "")
		t.Setenv("AZURE_CONFIG_DIR", t.TempDir())
		runner := command.NewFakeRunner().On("az account show", ok(`"acct-sub"`))
		sub, err := New(runner).ResolveSubscription(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "acct-sub", sub)
	})

	t.Run("account show empty", func(t *testing.T) {
		t.Setenv(SubscriptionEnvVar, "")
		t.Setenv("AZURE_CONFIG_DIR", t.TempDir())
		runner := command.NewFakeRunner().On("az account show", ok(``))
		_, err := New(runner).ResolveSubscription(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsBackend(err))
	})
}
