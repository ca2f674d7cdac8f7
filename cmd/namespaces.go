package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List namespaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		names, err := b.Namespaces(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			if name == "" {
				name = "(default)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(namespacesCmd)
}
