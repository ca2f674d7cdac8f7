package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/microkv/internal/security"
	"github.com/illarion/microkv/pkg/microkv"
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List stores under ~/.microkv",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		ws, err := security.OpenWorkspace(filepath.Join(home, microkv.DefaultDir))
		if err != nil {
			return err
		}
		defer ws.Close()

		names, err := ws.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storesCmd)
}
