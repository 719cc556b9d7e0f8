package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/efs-sdk/accessmanager/internal/tasks"
)

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all background tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving tasks...")
		statuses, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return logError(err, "", "failed to list tasks")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Every", "Runs", "Last Run", "Next Run", "Last Result"})
		for _, s := range statuses {
			t.AppendRow(taskRow(s))
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func taskRow(s tasks.TaskStatus) table.Row {
	name := bold(s.Name)
	if s.Running {
		name += " " + color.BlueString("(running)")
	}

	runs := fmt.Sprint(s.Runs)
	if s.Failures > 0 {
		runs += color.RedString(" (%d failed)", s.Failures)
	}

	lastRun := faint("never")
	if !s.LastRun.IsZero() {
		lastRun = fmt.Sprintf("%s ago %s", time.Since(s.LastRun).Round(time.Second), faint("took "+s.LastDuration))
	}

	nextRun := faint("on demand")
	if !s.NextRun.IsZero() {
		nextRun = "in " + time.Until(s.NextRun).Round(time.Second).String()
	}

	result := s.LastResult
	switch {
	case result == "success":
		result = greenCheck + " " + result
	case result != "":
		result = redCross + " " + result
	}

	return table.Row{name, s.Interval, runs, lastRun, nextRun, result}
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
}
