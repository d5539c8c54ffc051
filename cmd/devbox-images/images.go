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
	"github.com/colbylwilliams/devbox-images/logging"
)

func newImagesCmd() *cobra.Command {
	opts := &cli.ImagesCLIOptions{}
	var suffix string

	cmd := &cobra.Command{
		Use:   "images",
		Short: "List the selected images",
		Long: `List the images selected by name or by changed paths. With --resolve
each image is checked against the gallery and only those that need a
new version are listed; in GitHub Actions the list is also written to
the images and build step outputs.

Examples:
  # Matrix of the images changed by a pull request
  devbox-images images --changes-from origin/main --resolve --format matrix`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImages(cmd, opts, suffix)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.Images, "images", "i", nil, "Names of images (default all)")
	flags.StringSliceVarP(&opts.Changes, "changes", "c", nil, "Changed file paths used to select images")
	flags.StringVar(&opts.ChangesFrom, "changes-from", "", "Select images changed between this git revision and HEAD")
	flags.BoolVarP(&opts.Resolve, "resolve", "r", false, "Keep only images that need a new gallery version")
	flags.StringVarP(&opts.Format, "format", "f", "json", "Output format (json, table, matrix)")
	flags.StringVarP(&suffix, "suffix", "s", "", "Suffix for temporary resource group names (default UTC time as yyyymmddHHMM)")
	flags.String("az", "", "Path to the az executable")
	return cmd
}

func runImages(cmd *cobra.Command, opts *cli.ImagesCLIOptions, suffix string) error {
	ctx := cmd.Context()
	cfg := configFromContext(cmd)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	validator, err := a.validator()
	if err != nil {
		return err
	}
	if err := validator.ValidateImagesOptions(*opts); err != nil {
		return err
	}

	images, err := a.selectImages(ctx, opts.Selection())
	if err != nil {
		return err
	}
	formatter := cli.NewOutputFormatter(opts.Format).WithWriter(cmd.OutOrStdout())

	if !opts.Resolve {
		return formatter.DisplayDefinitions(images)
	}

	if suffix == "" {
		suffix = time.Now().UTC().Format(SuffixLayout)
	}
	if err := cli.ValidateSuffix(suffix); err != nil {
		return err
	}

	gal, err := a.store.LoadGallery()
	if err != nil {
		return err
	}
	svc := builder.NewBuildService(a.resolver(a.azure(gal), false), builder.NewDispatcher(nil))
	plan, err := svc.Plan(ctx, images, gal, suffix, builder.Options{
		Concurrent:     true,
		MaxConcurrency: cfg.Build.Concurrency,
	})
	if err != nil {
		return err
	}

	resolved := plan.Resolved()
	if err := a.gh.WriteOutputs(resolved); err != nil {
		return err
	}
	if err := a.gh.WriteSummary(resolved, nil); err != nil {
		return err
	}
	if err := formatter.DisplayResolved(plan.BuildNeeded()); err != nil {
		return err
	}

	failed := 0
	for _, e := range plan.Entries {
		if e.Outcome != nil {
			logging.ErrorContext(ctx, "%s: %s", e.Outcome.Image, e.Outcome.ErrorDetail)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to resolve %d of %d images", failed, len(plan.Entries))
	}
	return nil
}
