package internal

import (
	"fmt"
	"os"

	"github.com/goplus/llpack/internal/recipe"
	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/goplus/llpack/pkgs/buildsys/autotools"
	"github.com/goplus/llpack/pkgs/buildsys/cmake"
	"github.com/spf13/cobra"
)

// recipe selection and option overrides are shared by options, defs and build
var (
	recipeArg  string
	optionArgs []string
)

func addRecipeFlags(cmd *cobra.Command, withOptions bool) {
	cmd.Flags().StringVarP(&recipeArg, "recipe", "r", "fftw3", "Builtin recipe name or path to a recipe file")
	if withOptions {
		cmd.Flags().StringArrayVarP(&optionArgs, "option", "O", nil, "Override an option as name=value (repeatable)")
	}
}

// loadRecipe resolves arg as a file when one exists, otherwise as a
// builtin recipe name.
func loadRecipe(arg string) (*recipe.Recipe, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return recipe.Load(arg)
	}
	r, err := recipe.Builtin(arg)
	if err != nil {
		return nil, fmt.Errorf("%w (builtin recipes: %v)", err, recipe.Builtins())
	}
	return r, nil
}

// newDriver returns the driver for the recipe's build system. Tool output
// is streamed to stdout in verbose mode.
func newDriver(r *recipe.Recipe, verbose bool) (buildsys.Driver, error) {
	switch r.BuildSystem {
	case "cmake":
		d := cmake.New()
		if verbose {
			d.Stdout(os.Stdout)
		}
		return d, nil
	case "autotools":
		d := autotools.New()
		if verbose {
			d.Stdout(os.Stdout)
		}
		return d, nil
	}
	return nil, fmt.Errorf("no driver for build system %q", r.BuildSystem)
}
