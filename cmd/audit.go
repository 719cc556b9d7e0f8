package cmd

import (
	"github.com/spf13/cobra"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log of the server",
	Long:  `View the audit log of token requests and commits. Requires an authenticated session with admin privileges.`,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
