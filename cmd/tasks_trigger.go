package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/efs-sdk/accessmanager/pkg/client"
)

var (
	tasksTriggerWait    bool
	tasksTriggerTimeout time.Duration
)

const taskPollInterval = 500 * time.Millisecond

var tasksTriggerCmd = &cobra.Command{
	Use:     "trigger NAME",
	Short:   "Run a background task now",
	Example: `  accessmanager tasks trigger cache-sweep --wait`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		runsBefore := -1
		if tasksTriggerWait {
			if runsBefore, err = taskRuns(cmd, cli, name); err != nil {
				return logError(err, "", "failed to read task status")
			}
		}

		if err := cli.TriggerTask(cmd.Context(), name); err != nil {
			return logError(err, "", fmt.Sprintf("failed to trigger task '%s'", name))
		}
		logSuccess("triggered task %s", bold(name))

		if !tasksTriggerWait {
			fmt.Printf("Run '%s' to see progress.\n", color.CyanString("accessmanager tasks logs "+name))
			return nil
		}
		return waitForTask(cmd, cli, name, runsBefore)
	},
}

func taskRuns(cmd *cobra.Command, cli *client.Client, name string) (int, error) {
	statuses, err := cli.ListTasks(cmd.Context())
	if err != nil {
		return 0, err
	}
	for _, s := range statuses {
		if s.Name == name {
			return s.Runs, nil
		}
	}
	return 0, nil
}

// waitForTask polls until a run newer than runsBefore has finished and prints its log.
func waitForTask(cmd *cobra.Command, cli *client.Client, name string, runsBefore int) error {
	deadline := time.Now().Add(tasksTriggerTimeout)
	for {
		statuses, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return logError(err, "", "failed to poll task status")
		}
		for _, s := range statuses {
			if s.Name == name && !s.Running && s.Runs > runsBefore {
				entries, err := cli.GetTaskLogs(cmd.Context(), name)
				if err != nil {
					return logError(err, "", "failed to retrieve task logs")
				}
				for _, e := range entries {
					fmt.Println(formatTaskLog(e))
				}
				fmt.Println(taskRow(s)[5])
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("task '%s' did not finish within %s", name, tasksTriggerTimeout)
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(taskPollInterval):
		}
	}
}

func init() {
	tasksCmd.AddCommand(tasksTriggerCmd)

	tasksTriggerCmd.Flags().BoolVarP(&tasksTriggerWait, "wait", "w", false, "Wait for the run to finish and print its log")
	tasksTriggerCmd.Flags().DurationVar(&tasksTriggerTimeout, "timeout", time.Minute, "How long to wait with --wait")
}
