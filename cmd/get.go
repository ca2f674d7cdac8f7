package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/illarion/microkv/internal/crypto"
)

var (
	getKey string
	getRaw bool
)

var getCmd = &cobra.Command{
	Use:   "get -k KEY",
	Short: "Print a value",
	Long:  `Print the value stored under a key. Strings are printed without quotes unless --raw is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		value, err := b.Get(cmd.Context(), viper.GetString("namespace"), getKey)
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(value)

		fmt.Fprintln(cmd.OutOrStdout(), printValue(value, getRaw))
		return nil
	},
}

func init() {
	getCmd.Flags().StringVarP(&getKey, "key", "k", "", "key to read")
	getCmd.Flags().BoolVar(&getRaw, "raw", false, "print the stored JSON as is")
	getCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(getCmd)
}
