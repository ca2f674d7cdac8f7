package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rmKey string

var rmCmd = &cobra.Command{
	Use:   "rm -k KEY",
	Short: "Remove a key",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		deleted, err := b.Delete(cmd.Context(), viper.GetString("namespace"), rmKey)
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s not found\n", rmKey)
		}
		return nil
	},
}

func init() {
	rmCmd.Flags().StringVarP(&rmKey, "key", "k", "", "key to remove")
	rmCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(rmCmd)
}
