package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the server's token cache",
}

var cacheListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cached storage tokens",
	Long: `Lists the tokens currently held in the server's cache. Tokens are shown by
fingerprint only.

This command requires an authenticated session (via 'accessmanager login') with admin privileges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Fetching cached tokens...")
		entries, correlation, err := cli.ListCachedTokens(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to list cached tokens")
		}

		if len(entries) == 0 {
			log.Info().Msg("The token cache is empty")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Class", "Organization", "Space", "Expires", "Reusable", "Fingerprint"})

		for _, e := range entries {
			expires := "unreadable"
			if !e.ExpiresAt.IsZero() {
				left := time.Until(e.ExpiresAt).Round(time.Second)
				expires = fmt.Sprintf("%s (%s)", e.ExpiresAt.Local().Format("15:04:05"), faint(left.String()))
			}
			t.AppendRow(table.Row{
				bold(e.Class.String()),
				e.Organization,
				e.Space,
				expires,
				yesNo(e.Valid),
				faint(e.Fingerprint),
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
}
