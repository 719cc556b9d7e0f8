package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tokenCommitRootDir string

var tokenCommitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit the loading zone upload into a space",
	Long: `Announces that the upload into the loading zone is complete. The transfer into
the space happens asynchronously on the receiving side.`,
	Example: `  accessmanager token commit -o acme -s raw --root-dir batch-42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		correlation, err := cli.Commit(cmd.Context(), tokenOrganization, tokenSpace, tokenCommitRootDir)
		if err != nil {
			return logError(err, correlation, "failed to commit the upload")
		}

		logSuccess("committed upload into %s (correlation ID: %s)",
			bold(tokenOrganization+"/"+tokenSpace), color.CyanString(correlation))
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenCommitCmd)

	tokenCommitCmd.Flags().StringVar(&tokenCommitRootDir, "root-dir", "", "Directory of the upload (server default: none)")
}
