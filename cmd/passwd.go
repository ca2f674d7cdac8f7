package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/microkv/internal/crypto"
	"github.com/illarion/microkv/internal/keyring"
	"github.com/illarion/microkv/internal/password"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the store password",
	Long:  `Re-encrypt every value under a new password and save the store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := storePath()
		if err != nil {
			return err
		}
		db, err := openStore(path)
		if err != nil {
			return err
		}
		defer db.Close()

		newPassword, err := password.ReadConfirm()
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(newPassword)

		hadKeyring := keyring.HasPassword(db.StoreID())

		if err := db.ChangePassword(newPassword); err != nil {
			return err
		}

		// Keep the keyring entry in step with the store
		if hadKeyring {
			if err := keyring.SavePassword(db.StoreID(), string(newPassword)); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Keyring updated with new password")
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Password changed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}
