package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/microkv/internal/git"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new store",
	Long: `Create a new store file. The password is asked twice unless it is set
in MICROKV_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := storePath()
		if err != nil {
			return err
		}
		id, err := storeID(path)
		if err != nil {
			return err
		}
		if id != "" {
			return fmt.Errorf("store already exists at %s", path)
		}

		db, err := openStore(path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Commit(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized store %s\n", path)
		fmt.Fprint(cmd.OutOrStdout(), git.Format(git.CheckStore(path), filepath.Base(path), db.Encrypted()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
