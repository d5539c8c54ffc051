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

// Package packer builds images locally with HashiCorp Packer.
package packer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/colbylwilliams/devbox-images/builder"
	"github.com/colbylwilliams/devbox-images/command"
	"github.com/colbylwilliams/devbox-images/git"
	"github.com/colbylwilliams/devbox-images/image"
	"github.com/colbylwilliams/devbox-images/logging"
)

// VarsFile is the variables file written into each image directory.
// Packer loads *.auto.pkrvars.json files automatically.
const VarsFile = "vars.auto.pkrvars.json"

// DefaultBinary is the packer executable name.
const DefaultBinary = "packer"

// maxDetailLines bounds the command output kept in a failed outcome.
const maxDetailLines = 100

// Adapter implements builder.Adapter for packer templates.
type Adapter struct {
	runner       command.Runner
	binary       string
	subscription string
	git          git.Info
	color        bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBinary overrides the packer executable path.
func WithBinary(path string) Option {
	return func(a *Adapter) {
		if path != "" {
			a.binary = path
		}
	}
}

// WithSubscription sets the subscription variable.
func WithSubscription(id string) Option {
	return func(a *Adapter) {
		a.subscription = id
	}
}

// WithGitInfo sets the branch and commit variables.
func WithGitInfo(info git.Info) Option {
	return func(a *Adapter) {
		a.git = info
	}
}

// WithColor enables packer's colored output. CI logs disable it.
func WithColor(color bool) Option {
	return func(a *Adapter) {
		a.color = color
	}
}

// NewAdapter creates a packer Adapter.
func NewAdapter(runner command.Runner, opts ...Option) *Adapter {
	a := &Adapter{runner: runner, binary: DefaultBinary, color: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements builder.Adapter.
func (a *Adapter) Name() string {
	return "packer"
}

// Prepare implements builder.Adapter. It writes VarsFile with every
// template variable the resolved image has a value for.
func (a *Adapter) Prepare(ctx context.Context, img *image.ResolvedImage) (*builder.Artifact, error) {
	vars := a.Variables(ctx, img.Path)
	logging.DebugContext(ctx, "Template variables: %v", names(vars))

	values, err := a.values(img)
	if err != nil {
		return nil, err
	}

	selected := map[string]any{}
	if a.subscription != "" {
		selected["subscription"] = a.subscription
	}
	for _, v := range vars {
		val, ok := values[v.Name]
		if ok && !isEmpty(val) {
			selected[v.Name] = val
			continue
		}
		switch def := v.DefaultJSON(); {
		case v.Required:
			logging.WarnContext(ctx, "Packer variable %s has no default and no value for this image", v.Name)
		case def != "":
			logging.DebugContext(ctx, "Packer variable %s uses template default %s", v.Name, def)
		default:
			logging.DebugContext(ctx, "Packer variable %s uses its template default", v.Name)
		}
	}

	data, err := marshalVars(selected)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(img.Path, VarsFile)
	logging.DebugContext(ctx, "Writing %s with variables %v", path, sortedKeys(selected))
	return builder.WriteArtifact(path, data)
}

// values returns every variable value the resolved image can supply.
// Extra keys from image.yaml come first so typed fields win.
func (a *Adapter) values(img *image.ResolvedImage) (map[string]any, error) {
	values := map[string]any{}
	for k, v := range img.Extra {
		values[k] = v
	}

	repos := make([]git.RepoInfo, 0, len(img.Repos))
	for _, r := range img.Repos {
		info, err := git.ParseRepoURL(r.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid repo for image %s: %w", img.Name, err)
		}
		info.Secret = r.Secret
		repos = append(repos, info)
	}

	gallery := map[string]any{
		"name":          img.Gallery.Name,
		"resourceGroup": img.Gallery.ResourceGroup,
	}
	if img.Gallery.Subscription != "" {
		gallery["subscription"] = img.Gallery.Subscription
	}

	for k, v := range map[string]any{
		"subscription":                a.subscription,
		"name":                        img.Name,
		"location":                    img.Location,
		"version":                     img.PublishVersion(),
		"buildResourceGroup":          img.BuildResourceGroup,
		"gallery":                     gallery,
		"replicaLocations":            img.ReplicaLocations,
		"repos":                       repos,
		"branch":                      a.git.Branch,
		"commit":                      a.git.Commit,
		"publisher":                   img.Publisher,
		"offer":                       img.Offer,
		"sku":                         img.SKU,
		"os":                          string(img.OS),
		"description":                 img.Description,
		"keyVault":                    img.KeyVault,
		"virtualNetwork":              img.VirtualNetwork,
		"virtualNetworkSubnet":        img.VirtualNetworkSubnet,
		"virtualNetworkResourceGroup": img.VirtualNetworkResourceGroup,
	} {
		values[k] = v
	}
	if img.ResourceGroupIsTemporary {
		values["tempResourceGroup"] = img.ResourceGroupName
	}
	return values, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case []git.RepoInfo:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// marshalVars renders vars as JSON with sorted keys, four-space indent
// and a trailing newline.
func marshalVars(vars map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(vars); err != nil {
		return nil, fmt.Errorf("failed to encode packer variables: %w", err)
	}
	return buf.Bytes(), nil
}

// Execute implements builder.Adapter. packer build only runs when packer
// init succeeds.
func (a *Adapter) Execute(ctx context.Context, img *image.ResolvedImage) builder.Outcome {
	start := time.Now()
	out := builder.Outcome{Image: img.Name, Builder: img.Builder, Version: img.PublishVersion()}

	if err := a.phase(ctx, "init", img.Path); err != nil {
		return failed(out, err)
	}

	args := []string{"build", "-force"}
	if !a.color {
		args = append(args, "-color=false")
	}
	if err := a.phase(ctx, "build", img.Path, args...); err != nil {
		return failed(out, err)
	}

	out.Status = builder.StatusSucceeded
	logging.InfoContext(ctx, "Packer build finished in %s", time.Since(start).Round(time.Second))
	return out
}

// phase runs one packer subcommand against dir. args replaces the
// default argument list of just the subcommand name.
func (a *Adapter) phase(ctx context.Context, name, dir string, args ...string) error {
	if len(args) == 0 {
		args = []string{name}
	}
	cmd := command.Cmd{Name: a.binary, Args: append(args, dir), Dir: dir, Stream: true}

	logging.InfoContext(ctx, "Running packer %s", name)
	res, err := a.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("packer %s: %w", name, err)
	}
	if !res.Success() {
		return fmt.Errorf("packer %s exited with code %d:\n%s", name, res.ExitCode, tail(res.Output, maxDetailLines))
	}
	return nil
}

func failed(out builder.Outcome, err error) builder.Outcome {
	out.Status = builder.StatusFailed
	out.ErrorDetail = logging.RedactSensitivePatterns(err.Error())
	return out
}

func tail(output string, n int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
