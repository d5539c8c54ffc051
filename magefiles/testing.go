//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/l50/goutils/v2/git"
	"github.com/l50/goutils/v2/sys"

	// mage utility functions
	"github.com/magefile/mage/sh"
)

type compileParams struct {
	GOOS   string
	GOARCH string
}

var repoRoot string

func init() {
	var err error
	repoRoot, err = git.RepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get repo root: %v\n", err)
		os.Exit(1)
	}
}

func (p *compileParams) populateFromEnv() {
	if p.GOOS == "" {
		p.GOOS = os.Getenv("GOOS")
		if p.GOOS == "" {
			p.GOOS = runtime.GOOS
		}
	}

	if p.GOARCH == "" {
		p.GOARCH = os.Getenv("GOARCH")
		if p.GOARCH == "" {
			p.GOARCH = runtime.GOARCH
		}
	}
}

// Compile builds the devbox-images binary into bin/. GOOS and GOARCH
// select the target and default to the current system. The builder
// container image needs GOOS=linux.
//
// Example usage:
//
// ```go
// mage compile
// GOOS=linux GOARCH=amd64 mage compile
// ```
func Compile() error {
	cwd, err := changeToRepoRoot()
	if err != nil {
		return err
	}
	defer os.Chdir(cwd)

	var p compileParams
	p.populateFromEnv()

	out := filepath.Join("bin", fmt.Sprintf("devbox-images-%s-%s", p.GOOS, p.GOARCH))
	fmt.Printf("Compiling %s, please wait.\n", out)

	env := map[string]string{"GOOS": p.GOOS, "GOARCH": p.GOARCH, "CGO_ENABLED": "0"}
	if err := sh.RunWithV(env, "go", "build", "-trimpath", "-o", out, "./cmd/devbox-images"); err != nil {
		return fmt.Errorf("go build failed: %v", err)
	}
	return nil
}

func changeToRepoRoot() (originalCwd string, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}

	if cwd != repoRoot {
		if err := os.Chdir(repoRoot); err != nil {
			return "", fmt.Errorf("failed to change directory to repo root: %v", err)
		}
	}

	return cwd, nil
}

// RunTests executes all unit tests with the race detector.
//
// Example usage:
//
// ```go
// mage runtests
// ```
func RunTests() error {
	cwd, err := changeToRepoRoot()
	if err != nil {
		return err
	}
	defer os.Chdir(cwd)

	if !sys.CmdExists("go") {
		return fmt.Errorf("go is not installed")
	}

	fmt.Println("Running unit tests.")
	if err := sh.RunV("go", "test", "-race", "-count=1", "./..."); err != nil {
		return fmt.Errorf("failed to run unit tests: %v", err)
	}
	return nil
}
