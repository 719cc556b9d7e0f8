package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage background tasks on the server",
	Long:  `List, trigger and inspect background tasks such as the token cache sweep. Requires an authenticated session with admin privileges.`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
