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

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/colbylwilliams/devbox-images/azure"
	"github.com/colbylwilliams/devbox-images/builder"
	"github.com/colbylwilliams/devbox-images/builder/aib"
	"github.com/colbylwilliams/devbox-images/builder/packer"
	"github.com/colbylwilliams/devbox-images/ci"
	"github.com/colbylwilliams/devbox-images/cli"
	"github.com/colbylwilliams/devbox-images/command"
	"github.com/colbylwilliams/devbox-images/config"
	"github.com/colbylwilliams/devbox-images/gallery"
	"github.com/colbylwilliams/devbox-images/git"
	"github.com/colbylwilliams/devbox-images/image"
	"github.com/colbylwilliams/devbox-images/logging"
)

// newRunner creates the runner for az and packer. Tests replace it.
var newRunner = func() command.Runner {
	return command.NewExecRunner(os.Stderr)
}

// app holds the collaborators shared by the commands.
type app struct {
	cfg    *config.Config
	root   string
	store  *image.Store
	runner command.Runner
	gh     *ci.GitHub
}

func newApp(cfg *config.Config) (*app, error) {
	root, err := cfg.RepoRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to determine repository root: %w", err)
	}
	env := cfg.Env
	return &app{
		cfg:    cfg,
		root:   root,
		store:  image.NewStore(root, cfg.Repo.ImagesDir),
		runner: newRunner(),
		gh:     ci.NewGitHub(env.GitHubActions, env.GitHubOutput, env.GitHubStepSummary),
	}, nil
}

// azure returns an az client for the gallery's subscription, or the
// configured one when the gallery does not name one.
func (a *app) azure(gal image.GalleryDefinition) *azure.CLI {
	sub := gal.Subscription
	if sub == "" {
		sub = a.cfg.Azure.Subscription
	}
	return azure.New(a.runner, azure.WithBinary(a.cfg.Tools.Az), azure.WithSubscription(sub))
}

// validator returns a cli.Validator that knows the repository's images.
func (a *app) validator() (*cli.Validator, error) {
	names, err := a.store.Names()
	if err != nil {
		return nil, err
	}
	return cli.NewValidator(names), nil
}

// selectImages loads the images chosen by sel: the named ones, the ones
// touched by changed paths, or all of them.
func (a *app) selectImages(ctx context.Context, sel cli.Selection) ([]*image.ImageDefinition, error) {
	common, err := a.store.LoadCommon()
	if err != nil {
		return nil, err
	}

	if len(sel.Images) > 0 {
		return a.store.LoadNamed(sel.Images, common)
	}

	all, err := a.store.LoadAll(common)
	if err != nil {
		return nil, err
	}
	if !sel.ByChanges() {
		return all, nil
	}

	changes := append([]string(nil), sel.Changes...)
	if sel.ChangesFrom != "" {
		repo, err := git.Open(a.root)
		if err != nil {
			return nil, err
		}
		files, err := repo.ChangedFiles(ctx, sel.ChangesFrom)
		if err != nil {
			return nil, err
		}
		logging.DebugContext(ctx, "Files changed since %s: %v", sel.ChangesFrom, files)
		changes = append(changes, files...)
	}

	selected := image.SelectChanged(a.root, all, changes, a.cfg.Build.SharedPaths)
	logging.InfoContext(ctx, "%d of %d images affected by %d changed paths", len(selected), len(all), len(changes))
	return selected, nil
}

// gitInfo returns branch and commit for packer variables. A checkout
// without git metadata yields empty values.
func (a *app) gitInfo(ctx context.Context) git.Info {
	repo, err := git.Open(a.root)
	if err != nil {
		logging.DebugContext(ctx, "No git metadata: %v", err)
		return git.Info{}
	}
	info, err := repo.Info(ctx)
	if err != nil {
		logging.WarnContext(ctx, "Failed to read git metadata: %v", err)
		return git.Info{}
	}
	return info
}

// resolver returns a gallery resolver with the configured retry policy.
func (a *app) resolver(az *azure.CLI, createMissing bool) *gallery.Resolver {
	return gallery.NewResolver(az,
		gallery.WithRetry(a.cfg.Resolver.MaxAttempts, a.cfg.Resolver.Backoff),
		gallery.WithCreateMissing(createMissing))
}

// dispatcher returns a dispatcher with both backend adapters.
func (a *app) dispatcher(az *azure.CLI, subscription string, info git.Info) *builder.Dispatcher {
	template := a.cfg.AIB.Template
	if template != "" && !filepath.IsAbs(template) {
		template = filepath.Join(a.root, template)
	}

	return builder.NewDispatcher(map[image.Builder]builder.Adapter{
		image.BuilderLocal: packer.NewAdapter(a.runner,
			packer.WithBinary(a.cfg.Tools.Packer),
			packer.WithSubscription(subscription),
			packer.WithGitInfo(info),
			packer.WithColor(!a.cfg.Env.InBuilder && !a.cfg.Env.GitHubActions)),
		image.BuilderCloud: aib.NewAdapter(az,
			aib.WithTemplateFile(template),
			aib.WithPollInterval(a.cfg.Build.PollInterval),
			aib.WithTimeout(a.cfg.Build.Timeout)),
	})
}
