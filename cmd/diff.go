package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/microkv/internal/report"
)

var diffValues bool

var diffCmd = &cobra.Command{
	Use:   "diff OTHER",
	Short: "Compare two stores",
	Long: `Compare the current store with another store, given by name or path.
Values are hidden unless --values is given; changed keys are marked instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pathA, err := storePath()
		if err != nil {
			return err
		}
		pathB, err := resolveStore(args[0])
		if err != nil {
			return err
		}

		a, err := collectStore(pathA)
		if err != nil {
			return err
		}
		defer report.Wipe(a)

		b, err := collectStore(pathB)
		if err != nil {
			return err
		}
		defer report.Wipe(b)

		out := report.Unified(filepath.Base(pathA), filepath.Base(pathB), a, b, diffValues)
		if out == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No differences")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func collectStore(path string) ([]report.Entry, error) {
	db, err := openStore(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	defer db.Close()
	return report.Collect(db)
}

func init() {
	diffCmd.Flags().BoolVar(&diffValues, "values", false, "show values in the diff")
	rootCmd.AddCommand(diffCmd)
}
