package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/microkv/internal/git"
	"github.com/illarion/microkv/internal/keyring"
	"github.com/illarion/microkv/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store information",
	Long:  `Show store metadata and entry counts. No password is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := storePath()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		snap, err := storage.Load(path)
		if errors.Is(err, storage.ErrNotExist) {
			fmt.Fprintf(out, "No store at %s\n", path)
			fmt.Fprintln(out, "Run 'microkv init' to create one")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Store:     %s\n", path)
		fmt.Fprintf(out, "ID:        %s\n", snap.StoreID)
		if snap.Encrypted {
			fmt.Fprintln(out, "Encrypted: yes")
		} else {
			fmt.Fprintln(out, "Encrypted: no (unsafe mode)")
		}
		fmt.Fprintf(out, "Created:   %s\n", snap.Created.Format(time.RFC3339))
		fmt.Fprintf(out, "Modified:  %s\n", snap.Modified.Format(time.RFC3339))
		if keyring.HasPassword(snap.StoreID) {
			fmt.Fprintln(out, "Keyring:   password stored")
		} else {
			fmt.Fprintln(out, "Keyring:   not stored")
		}

		fmt.Fprintf(out, "\nNamespaces (%d entries):\n", snap.Len())
		if len(snap.Namespaces) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for _, ns := range snap.Namespaces {
			name := ns.Name
			if name == "" {
				name = "(default)"
			}
			fmt.Fprintf(out, "  %s: %d\n", name, len(ns.Records))
		}

		fmt.Fprint(out, git.Format(git.CheckStore(path), filepath.Base(path), snap.Encrypted))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
