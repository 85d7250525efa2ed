//go:build mage
// +build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/sh"
)

// Default target when running mage without arguments.
var Default = Build

// Build builds the server binary.
func Build() error {
	fmt.Println("Building server...")
	return sh.Run("go", "build", "-o", "bin/server", "./cmd/server")
}

// Test runs all tests.
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "./...")
}

// TestRace runs all tests with the race detector.
func TestRace() error {
	fmt.Println("Running tests (race)...")
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet.
func Lint() error {
	fmt.Println("Running go vet...")
	return sh.RunV("go", "vet", "./...")
}

// Run starts the server.
func Run() error {
	return sh.RunV("go", "run", "./cmd/server")
}

// Clean removes build artifacts.
func Clean() error {
	fmt.Println("Cleaning...")
	return sh.Rm("bin")
}
