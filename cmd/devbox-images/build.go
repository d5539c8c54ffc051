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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/colbylwilliams/devbox-images/builder"
	"github.com/colbylwilliams/devbox-images/cli"
	"github.com/colbylwilliams/devbox-images/config"
	"github.com/colbylwilliams/devbox-images/logging"
)

// SuffixLayout formats the default run suffix from the UTC start time.
const SuffixLayout = "200601021504"

func newBuildCmd() *cobra.Command {
	opts := &cli.BuildCLIOptions{}
	var format string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build images that need a new gallery version",
		Long: `Resolve each selected image against the gallery, write the builder
input files for the ones that need a new version and, with --build,
run packer or Azure Image Builder for them.

Examples:
  # Prepare inputs for every image without building
  devbox-images build

  # Build two images concurrently
  devbox-images build -i vscode -i java --build --async

  # Build the images changed since the main branch
  devbox-images build --changes-from origin/main --build`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, format)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.Images, "images", "i", nil, "Names of images to build (default all)")
	flags.StringSliceVarP(&opts.Changes, "changes", "c", nil, "Changed file paths used to select images")
	flags.StringVar(&opts.ChangesFrom, "changes-from", "", "Select images changed between this git revision and HEAD")
	flags.StringVarP(&opts.Suffix, "suffix", "s", "", "Suffix for temporary resource group names (default UTC time as yyyymmddHHMM)")
	flags.BoolVarP(&opts.Build, "build", "b", false, "Run the builds; without it only builder inputs are written")
	flags.BoolVarP(&opts.Async, "async", "a", false, "Build images concurrently")
	flags.IntVar(&opts.Concurrency, "concurrency", 0, "Maximum concurrent images with --async")
	flags.String("packer", "", "Path to the packer executable")
	flags.String("az", "", "Path to the az executable")
	flags.StringVarP(&format, "output", "o", "table", "Report format (table, json)")
	return cmd
}

func runBuild(cmd *cobra.Command, opts *cli.BuildCLIOptions, format string) error {
	ctx := cmd.Context()
	cfg := configFromContext(cmd)

	if err := applyBuilderEnvironment(cfg.Env, opts); err != nil {
		return err
	}
	if opts.Suffix == "" {
		opts.Suffix = time.Now().UTC().Format(SuffixLayout)
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = cfg.Build.Concurrency
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	a.gh.Out = cmd.ErrOrStderr()
	validator, err := a.validator()
	if err != nil {
		return err
	}
	if err := validator.ValidateBuildOptions(*opts); err != nil {
		return err
	}

	gal, err := a.store.LoadGallery()
	if err != nil {
		return err
	}
	images, err := a.selectImages(ctx, opts.Selection())
	if err != nil {
		return err
	}
	if len(images) == 0 {
		logging.InfoContext(ctx, "No images selected")
		if err := a.gh.WriteOutputs(nil); err != nil {
			return err
		}
		return a.gh.WriteSummary(nil, nil)
	}

	az := a.azure(gal)
	if cfg.Env.InBuilder {
		if err := az.LoginIdentity(ctx); err != nil {
			return err
		}
	}
	subscription, err := az.ResolveSubscription(ctx)
	if err != nil {
		return err
	}
	logging.DebugContext(ctx, "Using subscription %s", subscription)

	svc := builder.NewBuildService(
		a.resolver(az, true),
		a.dispatcher(az, subscription, a.gitInfo(ctx)))
	bopts := builder.Options{
		Concurrent:     opts.Async,
		ExecuteBuild:   opts.Build,
		MaxConcurrency: opts.Concurrency,
	}

	a.gh.Group("Resolving gallery versions")
	plan, err := svc.Plan(ctx, images, gal, opts.Suffix, bopts)
	a.gh.EndGroup()
	if err != nil {
		return err
	}

	if err := a.gh.WriteOutputs(plan.Resolved()); err != nil {
		logging.WarnContext(ctx, "Failed to write CI outputs: %v", err)
	}

	a.gh.Group("Building images")
	report := svc.Dispatch(ctx, plan, bopts)
	a.gh.EndGroup()

	if err := cli.NewOutputFormatter(format).WithWriter(cmd.OutOrStdout()).DisplayReport(ctx, report); err != nil {
		logging.WarnContext(ctx, "Failed to display report: %v", err)
	}
	if err := a.gh.WriteSummary(plan.Resolved(), report); err != nil {
		logging.WarnContext(ctx, "Failed to write CI summary: %v", err)
	}
	a.gh.Annotate(report)

	if failed := report.Failed(); len(failed) > 0 {
		return &buildFailedError{failed: len(failed), total: len(report.Outcomes)}
	}
	return nil
}

// applyBuilderEnvironment adjusts options inside the builder container,
// which always builds the single image named by BUILD_IMAGE_NAME.
func applyBuilderEnvironment(env config.Environment, opts *cli.BuildCLIOptions) error {
	if !env.InBuilder {
		return nil
	}
	if env.BuildImageName == "" {
		return fmt.Errorf("%s must be set when %s is set", config.EnvBuildImageName, config.EnvInBuilder)
	}
	opts.Images = []string{env.BuildImageName}
	opts.Changes = nil
	opts.ChangesFrom = ""
	opts.Build = true
	return nil
}
