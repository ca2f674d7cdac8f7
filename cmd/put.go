package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/illarion/microkv/internal/crypto"
)

var (
	putKey   string
	putValue string
	putJSON  bool
)

var putCmd = &cobra.Command{
	Use:   "put -k KEY -v VALUE",
	Short: "Store a value",
	Long: `Store a value under a key. The value is stored as a string unless
--json is given, in which case it must be a valid JSON document.`,
	Example: `  microkv put -k db.host -v localhost
  microkv -n billing put -k limits -v '{"max": 10}' --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := encodeValue(putValue, putJSON)
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(value)

		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		return b.Put(cmd.Context(), viper.GetString("namespace"), putKey, value)
	},
}

func encodeValue(value string, asJSON bool) (json.RawMessage, error) {
	if asJSON {
		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("value is not valid JSON")
		}
		return json.RawMessage(value), nil
	}
	return json.Marshal(value)
}

func init() {
	putCmd.Flags().StringVarP(&putKey, "key", "k", "", "key to store")
	putCmd.Flags().StringVarP(&putValue, "value", "v", "", "value to store")
	putCmd.Flags().BoolVar(&putJSON, "json", false, "parse the value as JSON")
	putCmd.MarkFlagRequired("key")
	putCmd.MarkFlagRequired("value")
	rootCmd.AddCommand(putCmd)
}
