package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/efs-sdk/accessmanager/pkg/client"
)

var tokenWriteMain bool

func requestToken(kind client.TokenKind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Requesting %s token for %s/%s...", kind, tokenOrganization, tokenSpace)
		token, correlation, err := cli.IssueToken(cmd.Context(), kind, tokenOrganization, tokenSpace)
		if err != nil {
			return logError(err, correlation, fmt.Sprintf("failed to get a %s token", kind))
		}

		// the token is the only thing on stdout so it can be piped
		fmt.Println(token)
		return nil
	}
}

var tokenReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Request a read token for a space",
	RunE:  requestToken(client.TokenRead),
}

var tokenWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Request a write token for the loading zone",
	Long: `Requests a write token for the organization's loading zone. Uploads placed there
are moved into the space with 'accessmanager token commit'. Use --main to write
into the space directly.`,
	Example: `  accessmanager token write -o acme -s raw
  accessmanager token write -o acme -s raw --main`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := client.TokenUpload
		if tokenWriteMain {
			kind = client.TokenUploadMain
		}
		return requestToken(kind)(cmd, args)
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Request a delete token for a space",
	RunE:  requestToken(client.TokenDelete),
}

func init() {
	tokenCmd.AddCommand(tokenReadCmd, tokenWriteCmd, tokenDeleteCmd)

	tokenWriteCmd.Flags().BoolVar(&tokenWriteMain, "main", false, "Write into the space instead of the loading zone")
}
