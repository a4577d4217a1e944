//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs one simulation with the default configuration.
func (Run) Simulation() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run simulation...")
	if _, err := executeCmd("go", withArgs("run", ".", "run", "--shaders", shaderDir), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs every buffering mode back to back, writing one report per run.
func (Run) Modes() error {
	if err := buildShaders(); err != nil {
		return err
	}
	for _, mode := range []string{"sync", "transfer", "double"} {
		args := []string{"run", ".", "run", "--shaders", shaderDir, "--mode", mode, "--reports", "reports"}
		if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Collates every report written so far into one table.
func (Run) Collate() error {
	if _, err := executeCmd("go", withArgs("run", ".", "collate", "reports"), withStream()); err != nil {
		return err
	}
	return nil
}
