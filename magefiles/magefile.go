//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	goutils "github.com/l50/goutils"

	// mage utility functions
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

func init() {
	os.Setenv("GO111MODULE", "on")
}

// InstallDeps Installs go dependencies
func InstallDeps() error {
	fmt.Println(color.YellowString("Installing dependencies."))

	if err := goutils.Tidy(); err != nil {
		return fmt.Errorf(color.RedString(
			"failed to install dependencies: %v", err))
	}

	if err := goutils.InstallGoPCDeps(); err != nil {
		return fmt.Errorf(color.RedString(
			"failed to install pre-commit dependencies: %v", err))
	}

	return nil
}

// RunPreCommit runs all pre-commit hooks locally
func RunPreCommit() error {
	mg.Deps(InstallDeps)

	fmt.Println(color.YellowString("Running all pre-commit hooks locally."))
	return goutils.RunPCHooks()
}

// GenerateSchema writes the image.yaml and gallery.yaml JSON schemas
// into schema/.
//
// Example usage:
//
// ```go
// mage generateschema
// ```
func GenerateSchema() error {
	cwd, err := changeToRepoRoot()
	if err != nil {
		return err
	}
	defer os.Chdir(cwd)

	fmt.Println(color.YellowString("Generating JSON schemas."))
	if err := sh.RunV("go", "run", "./cmd/schema-gen",
		"-o", "schema/image.json", "-gallery", "schema/gallery.json"); err != nil {
		return fmt.Errorf(color.RedString("failed to generate schemas: %v", err))
	}
	return nil
}

// Matrix prints the GitHub Actions matrix of images that need a new
// version, the same document the CI workflow fans out over.
//
// Example usage:
//
// ```go
// mage matrix
// ```
func Matrix() error {
	cwd, err := changeToRepoRoot()
	if err != nil {
		return err
	}
	defer os.Chdir(cwd)

	return sh.RunV("go", "run", "./cmd/devbox-images", "images", "--resolve", "--format", "matrix")
}
