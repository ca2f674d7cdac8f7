package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/illarion/microkv/internal/crypto"
)

var (
	listSorted bool
	listValues bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the keys of a namespace",
	Long: `List the keys of a namespace in insertion order, or sorted with --sorted.
With --values each key is followed by its value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx := cmd.Context()
		ns := viper.GetString("namespace")
		keys, err := b.Keys(ctx, ns, listSorted)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, key := range keys {
			if !listValues {
				fmt.Fprintln(out, key)
				continue
			}
			value, err := b.Get(ctx, ns, key)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", key, err)
			}
			fmt.Fprintf(out, "%s = %s\n", key, printValue(value, false))
			crypto.ClearBytes(value)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listSorted, "sorted", false, "sort keys lexicographically")
	listCmd.Flags().BoolVar(&listValues, "values", false, "print values too")
	rootCmd.AddCommand(listCmd)
}
