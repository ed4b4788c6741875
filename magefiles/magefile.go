//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "bin/tabclaim"

// Default target to run when none is specified
var Default = Build

// Build compiles the tabclaim binary
func Build() error {
	mg.Deps(Tidy)
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-o", binary, "./cmd/tabclaim")
}

// Test runs the unit tests with the race detector
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Lint runs go vet over every package
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Tidy syncs go.mod with the imports
func Tidy() error {
	return sh.Run("go", "mod", "tidy")
}

// Clean removes build output
func Clean() error {
	return sh.Rm("bin")
}
