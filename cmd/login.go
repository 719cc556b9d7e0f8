package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/efs-sdk/accessmanager/internal/cliconfig"
	"github.com/efs-sdk/accessmanager/pkg/client"
)

var loginCmd = &cobra.Command{
	Use:   "login TOKEN",
	Short: "Save a bearer token for a server",
	Long: `Saves a bearer token for the configured server. The token is sent with every
later request to that server: an identity provider token for the token commands,
or an admin session token for the admin commands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}

		server, err := f.serverAddr()
		if err != nil {
			return err
		}

		// make sure the server is reachable before saving anything
		cli, err := client.New(server, client.WithAuthToken(token))
		if err != nil {
			return err
		}
		info, correlation, err := cli.Info(cmd.Context())
		if err != nil {
			return logError(err, correlation, "server is not reachable")
		}
		log.Debug().Msgf("Server runs version %s", info.Version)

		host, err := cliconfig.SaveCredential(server, cliconfig.Credential{Token: token})
		if err != nil {
			return logError(err, correlation, "could not save credentials")
		}

		logSuccess("saved credentials for %s", bold(host))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved bearer token for a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.serverAddr()
		if err != nil {
			return err
		}
		host, err := cliconfig.RemoveCredential(server)
		if err != nil {
			return err
		}
		logSuccess("removed credentials for %s", bold(host))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
