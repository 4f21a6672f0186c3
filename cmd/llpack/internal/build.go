package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/llpack/internal/archive"
	"github.com/goplus/llpack/internal/build"
	"github.com/goplus/llpack/internal/sequencer"
	"github.com/goplus/llpack/internal/stage"
	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/goplus/llpack/pkgs/options"
	"github.com/spf13/cobra"
)

var (
	buildType      string
	buildCompiler  string
	buildJobs      int
	buildWorkspace string
	buildForce     bool
	buildOutput    string
)

var buildCmd = &cobra.Command{
	Use:   "build <source-dir>",
	Short: "Build and package a source tree",
	Long: `Build validates the option overrides, configures, compiles and installs
the source tree with the recipe's build system, then stages the selected
files and a manifest into the workspace. With -o the package is also written
to a directory or an archive (.zip, .tar.gz, .tar.xz, .tar.zst).`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	addRecipeFlags(buildCmd, true)
	flags := buildCmd.Flags()
	flags.StringVar(&buildType, "build-type", "Release", "Build type passed to the build system")
	flags.StringVar(&buildCompiler, "compiler", os.Getenv("CC"), "C compiler")
	flags.IntVarP(&buildJobs, "jobs", "j", 0, "Parallel compile jobs (0 lets the build system decide)")
	flags.StringVar(&buildWorkspace, "workspace", "", "Workspace directory (default $LLPACK_WORKSPACE or the user cache dir)")
	flags.BoolVar(&buildForce, "force", false, "Rebuild even if the package is cached")
	flags.StringVarP(&buildOutput, "output", "o", "", "Output path (directory or archive)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	r, err := loadRecipe(recipeArg)
	if err != nil {
		return err
	}
	overrides, err := options.ParseOverrides(optionArgs)
	if err != nil {
		return err
	}
	driver, err := newDriver(r, verbose)
	if err != nil {
		return err
	}

	// Resolve output path to absolute before build
	if buildOutput != "" {
		abs, err := filepath.Abs(buildOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		buildOutput = abs
	}

	settings := buildsys.DefaultSettings()
	settings.BuildType = buildType
	settings.Compiler = buildCompiler
	settings.Jobs = buildJobs

	builder, err := build.NewBuilder(build.Options{
		WorkspaceDir: buildWorkspace,
		Driver:       driver,
		Settings:     settings,
		Force:        buildForce,
	})
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := builder.Build(ctx, r, args[0], overrides)
	if err != nil {
		if diag := sequencer.Diagnostics(err); diag != "" && !verbose {
			fmt.Fprintln(cmd.ErrOrStderr(), diag)
		}
		return fmt.Errorf("failed to build %s@%s: %w", r.Name, r.Version, err)
	}
	printSummary(cmd, res)

	if buildOutput != "" {
		if err := archive.Write(res.PackageDir, buildOutput); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func printSummary(cmd *cobra.Command, res *build.Result) {
	m := res.Manifest
	out := cmd.OutOrStdout()
	state := "built"
	if res.Cached {
		state = "cached"
	}
	fmt.Fprintf(out, "%s %s %s (%s)\n", m.Name, m.Version, state, m.Settings)
	fmt.Fprintf(out, "  package:  %s\n", res.PackageDir)
	fmt.Fprintf(out, "  licenses: %d  binaries: %d  headers: %d  other: %d\n",
		m.Count(stage.License), m.Count(stage.Binary), m.Count(stage.Header), m.Count(stage.Other))
	fmt.Fprintf(out, "  fingerprint: %s\n", m.Fingerprint)
}
