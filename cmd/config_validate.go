package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Parses the configuration, applies defaults and reports every problem at once.
Environment variables in the file are expanded before parsing.`,
	Example: `  accessmanager config validate -c config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return logError(err, "", "configuration is invalid")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Setting", "Value"})
		t.AppendRows([]table.Row{
			{"server.addr", cfg.Server.Addr},
			{"storage.type", cfg.Storage.Type},
			{"storage.resource_group", cfg.Storage.ResourceGroup},
			{"token.expiration (r/w/d)", fmt.Sprintf("%s / %s / %s",
				cfg.Token.ReadLifetime(), cfg.Token.WriteLifetime(), cfg.Token.DeleteLifetime())},
			{"cache.buffer", cfg.Cache.BufferDuration()},
			{"events.kafka.topic", cfg.Events.Kafka.Topic},
			{"events.kafka.brokers", len(cfg.Events.Kafka.Brokers)},
			{"issuers", len(cfg.Issuers)},
			{"audit", fmt.Sprintf("%s (enabled: %s)", cfg.Audit.Type, yesNo(cfg.Audit.Enabled))},
			{"admin api", yesNo(cfg.Admin.SigningKey != "")},
		})
		applyTableFormat(t)
		t.Render()

		logSuccess("configuration is valid")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)

	f.bindConfigFlag(configValidateCmd.Flags())
	_ = configValidateCmd.MarkFlagRequired("config")
}
