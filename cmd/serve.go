package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/illarion/microkv/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the store over HTTP",
	Long: `Open the store and serve it over HTTP until interrupted.
Values travel unencrypted, so bind to loopback unless the link is protected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, viper.GetString("server.addr"))
	},
}

func runServe(cmd *cobra.Command, addr string) error {
	path, err := storePath()
	if err != nil {
		return err
	}
	db, err := openStore(path)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(db, server.WithLogger(logger))
	return srv.Run(cmd.Context(), addr)
}

func init() {
	serveCmd.Flags().String("addr", server.DefaultAddr, "listen address")
	if err := viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd)
}
