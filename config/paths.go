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

package config

import (
	"os"
	"path/filepath"
)

// AppName names the config directory and file.
const AppName = "devbox-images"

// BuilderRepoRoot is where the repository is mounted inside the builder
// container.
const BuilderRepoRoot = "/mnt/repo"

// configHome returns $XDG_CONFIG_HOME, or ~/.config when it is unset.
func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return ""
}

// ConfigDirs returns the directories searched for devbox-images.yaml, in
// priority order.
func ConfigDirs() []string {
	dirs := []string{"."}
	if home := configHome(); home != "" {
		dirs = append(dirs, filepath.Join(home, AppName))
	}
	return dirs
}

// RepoRoot returns the repository root for this run. The builder
// container always uses BuilderRepoRoot. Otherwise a configured root is
// made absolute and the working directory is the fallback.
func (c *Config) RepoRoot() (string, error) {
	if c.Env.InBuilder {
		return BuilderRepoRoot, nil
	}
	if c.Repo.Root != "" {
		return filepath.Abs(c.Repo.Root)
	}
	return os.Getwd()
}
