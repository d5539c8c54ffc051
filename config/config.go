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

// Package config loads run configuration for devbox-images. Values come
// from flags, DEVBOX_IMAGES_* environment variables, a devbox-images.yaml
// file and built-in defaults, in that order of precedence.
package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable bound to a config key.
const EnvPrefix = "DEVBOX_IMAGES"

// Config is the run configuration.
type Config struct {
	Repo     RepoConfig     `mapstructure:"repo"`
	Build    BuildConfig    `mapstructure:"build"`
	Tools    ToolsConfig    `mapstructure:"tools"`
	Azure    AzureConfig    `mapstructure:"azure"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	AIB      AIBConfig      `mapstructure:"aib"`
	Log      LogConfig      `mapstructure:"log"`

	// Env is read from the process environment, not from viper.
	Env Environment `mapstructure:"-"`
}

// RepoConfig locates the image configuration.
type RepoConfig struct {
	Root      string `mapstructure:"root"`
	ImagesDir string `mapstructure:"images_dir"`
}

// BuildConfig holds dispatch and polling settings.
type BuildConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	// SharedPaths are repository paths whose changes select every image.
	SharedPaths []string `mapstructure:"shared_paths"`
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	Az     string `mapstructure:"az"`
	Packer string `mapstructure:"packer"`
}

// AzureConfig pins the Azure subscription.
type AzureConfig struct {
	Subscription string `mapstructure:"subscription"`
}

// ResolverConfig bounds retries of gallery queries.
type ResolverConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// AIBConfig configures the Azure Image Builder adapter.
type AIBConfig struct {
	Template string `mapstructure:"template"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the default locations. A missing config
// file is not an error.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	for _, dir := range ConfigDirs() {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return decode(v)
}

// LoadFromPath reads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Env = LoadEnvironment()
	return &cfg, nil
}

// setDefaults sets default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("repo.root", "")
	v.SetDefault("repo.images_dir", "images")

	v.SetDefault("build.concurrency", 4)
	v.SetDefault("build.poll_interval", "30s")
	v.SetDefault("build.timeout", "4h")
	v.SetDefault("build.shared_paths", []string{"scripts/"})

	v.SetDefault("tools.az", "az")
	v.SetDefault("tools.packer", "packer")

	v.SetDefault("azure.subscription", "")

	v.SetDefault("resolver.max_attempts", 3)
	v.SetDefault("resolver.backoff", "2s")

	v.SetDefault("aib.template", "image.bicep")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "color")
}

// bindEnvVars explicitly binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, env)
	}

	// The az CLI's own variable works as a fallback.
	_ = v.BindEnv("azure.subscription", EnvPrefix+"_AZURE_SUBSCRIPTION", "AZURE_SUBSCRIPTION_ID")
}

// Validate checks values that would otherwise fail late in a run.
func (c *Config) Validate() error {
	if c.Build.Concurrency < 1 {
		return fmt.Errorf("build.concurrency must be at least 1, got %d", c.Build.Concurrency)
	}
	if c.Build.PollInterval <= 0 {
		return fmt.Errorf("build.poll_interval must be positive, got %s", c.Build.PollInterval)
	}
	if c.Build.Timeout <= 0 {
		return fmt.Errorf("build.timeout must be positive, got %s", c.Build.Timeout)
	}
	if c.Resolver.MaxAttempts < 1 {
		return fmt.Errorf("resolver.max_attempts must be at least 1, got %d", c.Resolver.MaxAttempts)
	}
	if c.Resolver.Backoff < 0 {
		return fmt.Errorf("resolver.backoff must not be negative, got %s", c.Resolver.Backoff)
	}
	if strings.TrimSpace(c.Repo.ImagesDir) == "" {
		return fmt.Errorf("repo.images_dir must not be empty")
	}
	switch c.Log.Format {
	case "", "plain", "text", "color", "json":
	default:
		return fmt.Errorf("log.format must be one of plain, color, json, got %q", c.Log.Format)
	}
	return nil
}
