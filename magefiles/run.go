//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the shaders and then runs the engine with config.toml.
func (Run) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests. They need neither a GPU nor a window.
func (Run) Tests() error {
	if _, err := executeCmd("go", withArgs("test", "./engine/..."), withStream()); err != nil {
		return err
	}
	return nil
}
