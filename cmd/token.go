package cmd

import (
	"github.com/spf13/cobra"
)

var (
	tokenOrganization string
	tokenSpace        string
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Request storage tokens from a remote server",
	Long: `Requests SAS tokens for a space of an organization. The bearer token is taken
from the saved credential ('accessmanager login') or ACCESSMANAGER_TOKEN.`,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.PersistentFlags().StringVarP(&tokenOrganization, "organization", "o", "", "Organization owning the space")
	tokenCmd.PersistentFlags().StringVarP(&tokenSpace, "space", "s", "", "Space (container) to access")
	_ = tokenCmd.MarkPersistentFlagRequired("organization")
	_ = tokenCmd.MarkPersistentFlagRequired("space")
}
