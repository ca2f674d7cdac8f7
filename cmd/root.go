package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/illarion/microkv/internal/crypto"
	"github.com/illarion/microkv/internal/server"
)

const (
	DefaultStore = "default"
	envPrefix    = "MICROKV"
)

var (
	cfgFile string
	logger  *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "microkv",
	Short: "Encrypted, namespaced key-value store",
	Long: `microkv keeps secrets and small configuration values in a single
encrypted file. Values are sealed with XSalsa20-Poly1305 under a key derived
from your password.

The password is read from MICROKV_PASSWORD, the OS keyring, or a prompt.
It is never accepted as a command-line flag.

Running 'microkv --server host:port' without a command serves the store over
HTTP. With a command, --server sends the command to that server instead of
opening the file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd.ErrOrStderr())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := viper.GetString("server")
		if addr == "" {
			return cmd.Help()
		}
		return runServe(cmd, addr)
	},
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		HandleError(err)
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.microkv.yaml)")
	flags.String("db", DefaultStore, "store name under ~/.microkv")
	flags.String("path", "", "store file path (overrides --db)")
	flags.StringP("namespace", "n", "", "namespace (default namespace if empty)")
	flags.Bool("unsafe", false, "store values without encryption")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("server", "", "serve on, or talk to, an HTTP server at host:port")

	bindFlagOrPanic("db", "db")
	bindFlagOrPanic("path", "path")
	bindFlagOrPanic("namespace", "namespace")
	bindFlagOrPanic("unsafe", "unsafe")
	bindFlagOrPanic("debug", "debug")
	bindFlagOrPanic("server", "server")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".microkv")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

func setDefaults() {
	viper.SetDefault("db", DefaultStore)
	viper.SetDefault("auto_commit", true)
	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("kdf.iterations", crypto.DefaultIters)
}

func newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		level = slog.LevelWarn
	}
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if viper.GetString("log.format") == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
