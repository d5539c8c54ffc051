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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/colbylwilliams/devbox-images/config"
	"github.com/colbylwilliams/devbox-images/logging"
)

type configKeyType struct{}

var configKey = configKeyType{}

// flagKeys maps flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"log-format":  "log.format",
	"repo":        "repo.root",
	"images-dir":  "repo.images_dir",
	"concurrency": "build.concurrency",
	"packer":      "tools.packer",
	"az":          "tools.az",
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devbox-images",
		Short: "Build Dev Box images and publish them to an Azure compute gallery",
		Long: `devbox-images reads gallery.yaml and images/<name>/image.yaml from a
repository, decides which images need a new gallery version, and builds
them with packer or Azure Image Builder.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (default is ./devbox-images.yaml or $XDG_CONFIG_HOME/devbox-images/devbox-images.yaml)")
	flags.String("repo", "", "Repository root (default is the working directory)")
	flags.String("images-dir", "", "Images directory relative to the repository root")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (plain, color, json)")
	flags.BoolP("quiet", "q", false, "Quiet mode - only show errors")
	flags.BoolP("verbose", "v", false, "Verbose mode - show debug output")

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newImagesCmd())
	cmd.AddCommand(newGalleryCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// configFromContext retrieves the config stored by initConfig.
func configFromContext(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
		return cfg
	}
	return nil
}

// initConfig initializes configuration with proper precedence:
// CLI Flags > Environment Variables > Config File > Defaults
func initConfig(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFromPath(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("repo.root", cfg.Repo.Root)
	v.SetDefault("repo.images_dir", cfg.Repo.ImagesDir)
	v.SetDefault("build.concurrency", cfg.Build.Concurrency)
	v.SetDefault("tools.packer", cfg.Tools.Packer)
	v.SetDefault("tools.az", cfg.Tools.Az)
	bindFlags(v, cmd)

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.Repo.Root = v.GetString("repo.root")
	cfg.Repo.ImagesDir = v.GetString("repo.images_dir")
	cfg.Build.Concurrency = v.GetInt("build.concurrency")
	cfg.Tools.Packer = v.GetString("tools.packer")
	cfg.Tools.Az = v.GetString("tools.az")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := logging.NewCustomLoggerWithOptions(cfg.Log.Level, cfg.Log.Format, quiet, verbose)
	logger.ConsoleWriter = cmd.ErrOrStderr()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = logging.WithLogger(ctx, logger)
	cmd.SetContext(ctx)
	return nil
}

// bindFlags binds the flags in flagKeys that cmd has, local or
// inherited, to their config keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			logging.WarnContext(cmd.Context(), "failed to bind flag %s to viper: %v", f.Name, err)
		}
	})
}
