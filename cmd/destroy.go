package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/illarion/microkv/internal/keyring"
)

var destroyForce bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete the store file and its keyring entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := storePath()
		if err != nil {
			return err
		}
		if !destroyForce {
			fmt.Fprintf(cmd.ErrOrStderr(), "Permanently delete %s? [y/N]: ", path)
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				return fmt.Errorf("aborted")
			}
		}

		db, err := openStore(path)
		if err != nil {
			return err
		}
		id := db.StoreID()
		if err := db.Destruct(); err != nil {
			return err
		}
		if err := keyring.DeletePassword(id); err != nil && !keyring.IsNotFound(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to remove keyring entry: %s\n", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Destroyed %s\n", path)
		return nil
	},
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyForce, "force", false, "do not ask for confirmation")
	rootCmd.AddCommand(destroyCmd)
}
