package internal

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goplus/llpack/pkgs/options"
	"github.com/spf13/cobra"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the options of a recipe",
	Args:  cobra.NoArgs,
	RunE:  runOptions,
}

func init() {
	addRecipeFlags(optionsCmd, false)
	rootCmd.AddCommand(optionsCmd)
}

func runOptions(cmd *cobra.Command, args []string) error {
	r, err := loadRecipe(recipeArg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%s, %s)\n", r.Name, r.Version, r.License, r.BuildSystem)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tDEFAULT\tVALUES\tHELP")
	for _, o := range r.Schema.Options() {
		values := "true|false"
		if o.Kind == options.Enum {
			values = strings.Join(o.Values, "|")
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", o.Name, o.Kind, o.Default, values, o.Help)
	}
	return w.Flush()
}
