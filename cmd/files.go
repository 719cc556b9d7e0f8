package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/efs-sdk/accessmanager/pkg/client"
)

var filesOpts client.ListFilesOpts

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files of a space",
	Long: `Lists blob names of a space. With --root-dir everything below that directory
is listed, otherwise every name that fully matches --pattern.`,
	Example: `  accessmanager token files -o acme -s raw --root-dir batch-42
  accessmanager token files -o acme -s raw --pattern '.*\.csv'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		files, correlation, err := cli.ListFiles(cmd.Context(), tokenOrganization, tokenSpace, filesOpts)
		if err != nil {
			return logError(err, correlation, "failed to list files")
		}
		log.Debug().Msgf("Retrieved %d file(s)", len(files))

		for _, name := range files {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(filesCmd)

	filesCmd.Flags().StringVar(&filesOpts.RootDir, "root-dir", "", "List everything below this directory")
	filesCmd.Flags().StringVar(&filesOpts.Pattern, "pattern", "", "Regular expression the whole name has to match")
}
