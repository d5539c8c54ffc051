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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/logging"
)

// SubscriptionEnvVar names the environment variable consulted for the
// subscription ID.
const SubscriptionEnvVar = "AZURE_SUBSCRIPTION_ID"

// CloudsConfigPath returns the az CLI clouds.config location, honoring
// AZURE_CONFIG_DIR.
func CloudsConfigPath() string {
	if dir := os.Getenv("AZURE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "clouds.config")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".azure", "clouds.config")
}

// subscriptionFromClouds reads the default subscription for AzureCloud
// from the az CLI clouds.config file.
func subscriptionFromClouds(ctx context.Context, path string) string {
	if path == "" {
		return ""
	}
	cfg, err := ini.Load(path)
	if err != nil {
		logging.DebugContext(ctx, "Failed to load %s: %v", path, err)
		return ""
	}
	return strings.TrimSpace(cfg.Section("AzureCloud").Key("subscription").String())
}

// ResolveSubscription returns the subscription ID used for builds. The
// pinned subscription wins, then AZURE_SUBSCRIPTION_ID, then the az CLI
// clouds.config default, then 'az account show'.
func (c *CLI) ResolveSubscription(ctx context.Context) (string, error) {
	if c.subscription != "" {
		return c.subscription, nil
	}
	if env := strings.TrimSpace(os.Getenv(SubscriptionEnvVar)); env != "" {
		return env, nil
	}
	if sub := subscriptionFromClouds(ctx, CloudsConfigPath()); sub != "" {
		logging.DebugContext(ctx, "Using subscription from az CLI config: %s", sub)
		return sub, nil
	}

	out, err := c.run(ctx, "show account", "account", "show", "--query", "id")
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal([]byte(out), &id); err != nil || id == "" {
		return "", &errors.BackendError{
			Op:          "show account",
			Err:         fmt.Errorf("could not determine subscription from %q", strings.TrimSpace(out)),
			Remediation: "Set subscription in the config file or AZURE_SUBSCRIPTION_ID.",
		}
	}
	return id, nil
}

// LoginIdentity signs the az CLI in with the host's managed identity.
func (c *CLI) LoginIdentity(ctx context.Context) error {
	logging.InfoContext(ctx, "Logging in with managed identity")
	_, err := c.run(ctx, "login with managed identity", "login", "--identity", "--allow-no-subscriptions")
	return err
}
