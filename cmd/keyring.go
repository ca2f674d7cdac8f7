package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/microkv/internal/crypto"
	"github.com/illarion/microkv/internal/keyring"
	"github.com/illarion/microkv/internal/password"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Manage the store password in the OS keyring",
}

var keyringSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the store password to the keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := storePath()
		if err != nil {
			return err
		}
		id, err := storeID(path)
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("no store at %s, run 'microkv init' first", path)
		}

		pw, err := password.Read("Enter password: ")
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(pw)

		db, err := openWithPassword(path, pw, storeOptions()...)
		if err != nil {
			return err
		}
		db.Close()

		if err := keyring.SavePassword(id, string(pw)); err != nil {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password saved to keyring")
		return nil
	},
}

var keyringDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the store password from the keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentStoreID()
		if err != nil {
			return err
		}
		if id == "" || keyring.DeletePassword(id) != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No password stored in keyring")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password removed from keyring")
		return nil
	},
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the keyring holds the store password",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentStoreID()
		if err != nil {
			return err
		}
		if id != "" && keyring.HasPassword(id) {
			fmt.Fprintln(cmd.OutOrStdout(), "Password: stored in keyring")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Password: not stored")
		}
		return nil
	},
}

func currentStoreID() (string, error) {
	path, err := storePath()
	if err != nil {
		return "", err
	}
	return storeID(path)
}

func init() {
	keyringCmd.AddCommand(keyringSaveCmd, keyringDeleteCmd, keyringStatusCmd)
	rootCmd.AddCommand(keyringCmd)
}
