package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/efs-sdk/accessmanager/internal/tasks"
)

var tasksLogsMinLevel string

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

var tasksLogsCmd = &cobra.Command{
	Use:   "logs NAME",
	Short: "Show the log of the last run of a background task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minRank, ok := levelRank[strings.ToLower(tasksLogsMinLevel)]
		if !ok {
			return fmt.Errorf("unknown level '%s'", tasksLogsMinLevel)
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		entries, err := cli.GetTaskLogs(cmd.Context(), args[0])
		if err != nil {
			return logError(err, "", fmt.Sprintf("failed to retrieve logs of task '%s'", args[0]))
		}

		for _, e := range entries {
			if levelRank[e.Level] < minRank {
				continue
			}
			fmt.Println(formatTaskLog(e))
		}
		return nil
	},
}

func formatTaskLog(e tasks.LogEntry) string {
	var level string
	switch e.Level {
	case "info":
		level = color.GreenString("INF")
	case "warn":
		level = color.YellowString("WRN")
	case "error":
		level = color.RedString("ERR")
	default:
		level = faint("DBG")
	}
	return fmt.Sprintf("%s %s %s", faint(e.Time.Format("15:04:05.000")), level, e.Message)
}

func init() {
	tasksCmd.AddCommand(tasksLogsCmd)

	tasksLogsCmd.Flags().StringVar(&tasksLogsMinLevel, "level", "debug", "Minimum level to show (debug, info, warn, error)")
}
