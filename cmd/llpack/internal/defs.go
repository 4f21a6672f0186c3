package internal

import (
	"fmt"

	"github.com/goplus/llpack/pkgs/options"
	"github.com/spf13/cobra"
)

var defsCmd = &cobra.Command{
	Use:   "defs",
	Short: "Print the build system definitions for a set of options",
	Long: `Defs validates the option overrides against the recipe and prints the
resulting definitions as KEY:TYPE=VALUE lines, followed by their fingerprint.
No build is run.`,
	Args: cobra.NoArgs,
	RunE: runDefs,
}

func init() {
	addRecipeFlags(defsCmd, true)
	rootCmd.AddCommand(defsCmd)
}

func runDefs(cmd *cobra.Command, args []string) error {
	r, err := loadRecipe(recipeArg)
	if err != nil {
		return err
	}
	overrides, err := options.ParseOverrides(optionArgs)
	if err != nil {
		return err
	}
	set, err := r.Validate(overrides)
	if err != nil {
		return err
	}
	defs := r.Translate(set)

	out := cmd.OutOrStdout()
	out.Write(defs.Bytes())
	fmt.Fprintf(out, "# options: %s\n# fingerprint: %s\n", set.Canonical(), defs.Fingerprint())
	return nil
}
