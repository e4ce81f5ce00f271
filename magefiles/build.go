//go:build mage

package main

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

const shaderDir = "shaders"

var shaderStages = []string{".vert", ".frag", ".comp"}

type Build mg.Namespace

// Compiles every GLSL stage under shaders/ to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

func buildShaders() error {
	var sources []string
	for _, ext := range shaderStages {
		matches, err := filepath.Glob(filepath.Join(shaderDir, "*"+ext))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return errors.Newf("no shader sources found in %s", shaderDir)
	}

	includes, err := filepath.Glob(filepath.Join(shaderDir, "*.glsl"))
	if err != nil {
		return err
	}

	for _, src := range sources {
		out := src + ".spv"
		// rebuild when the stage or any shared include changed
		stale, err := target.Path(out, append([]string{src}, includes...)...)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.2", src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Removes the compiled shaders.
func (Build) Clean() error {
	matches, err := filepath.Glob(filepath.Join(shaderDir, "*.spv"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := sh.Rm(m); err != nil {
			return err
		}
	}
	return nil
}
