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

import "os"

// Environment variables read once at startup.
const (
	EnvInBuilder         = "ACI_IMAGE_BUILDER"
	EnvGitHubActions     = "GITHUB_ACTIONS"
	EnvGitHubOutput      = "GITHUB_OUTPUT"
	EnvGitHubStepSummary = "GITHUB_STEP_SUMMARY"
	EnvBuildImageName    = "BUILD_IMAGE_NAME"
)

// Environment is the process environment relevant to a run.
type Environment struct {
	// InBuilder is set inside the builder container.
	InBuilder         bool
	GitHubActions     bool
	GitHubOutput      string
	GitHubStepSummary string
	// BuildImageName selects the image to build inside the builder container.
	BuildImageName string
}

// LoadEnvironment reads the Environment from the process environment.
func LoadEnvironment() Environment {
	return EnvironmentFrom(os.Getenv)
}

// EnvironmentFrom reads the Environment through getenv. A flag variable
// counts as set when it is non-empty.
func EnvironmentFrom(getenv func(string) string) Environment {
	return Environment{
		InBuilder:         getenv(EnvInBuilder) != "",
		GitHubActions:     getenv(EnvGitHubActions) != "",
		GitHubOutput:      getenv(EnvGitHubOutput),
		GitHubStepSummary: getenv(EnvGitHubStepSummary),
		BuildImageName:    getenv(EnvBuildImageName),
	}
}
