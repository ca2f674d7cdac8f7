package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every key of a namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		ns := viper.GetString("namespace")
		if !clearForce {
			label := ns
			if label == "" {
				label = "the default namespace"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Remove all keys in %s? [y/N]: ", label)
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				return fmt.Errorf("aborted")
			}
		}

		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		return b.Clear(cmd.Context(), ns)
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearForce, "force", false, "do not ask for confirmation")
	rootCmd.AddCommand(clearCmd)
}
