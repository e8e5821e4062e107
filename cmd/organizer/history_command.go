package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ItsSleepy/File-Organiser/internal/history"
	"github.com/ItsSleepy/File-Organiser/internal/journal"
	"github.com/ItsSleepy/File-Organiser/internal/organizer"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [folder]",
		Short: "Show past runs and transaction logs that can still be undone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := organizer.ValidateTarget(folderArg(args))
			if err != nil {
				return err
			}
			logsDir := cfg.LogsDir(target)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Runs", colorize) {
				fmt.Fprintln(out, line)
			}
			store, err := openHistoryReadOnly(cmd.Context(), logsDir)
			if err != nil {
				return err
			}
			var runs []history.Run
			if store != nil {
				defer store.Close()
				runs, err = store.List(cmd.Context(), target, limit)
				if err != nil {
					return err
				}
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, renderStatusLine(statusInfo, "No runs recorded", colorize))
			} else {
				fmt.Fprintln(out, renderRuns(runs))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Undoable transaction logs", colorize) {
				fmt.Fprintln(out, line)
			}
			pending, err := journal.NewStore(logsDir).Pending()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(out, renderStatusLine(statusInfo, "Nothing to undo", colorize))
				return nil
			}
			fmt.Fprintln(out, renderPendingLogs(pending))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func renderRuns(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt.Local().Format(historyTimeLayout),
			string(run.Kind),
			strconv.Itoa(run.Moved),
			strconv.Itoa(run.Skipped),
			strconv.Itoa(run.Failed),
			runStatus(run),
			filepath.Base(run.LogPath),
		})
	}
	return renderTable(
		[]string{"Started", "Kind", "Moved", "Skipped", "Failed", "Status", "Log"},
		rows, nil,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func runStatus(run history.Run) string {
	switch {
	case run.Error != "":
		return "error"
	case !run.UndoneAt.IsZero():
		return "undone " + run.UndoneAt.Local().Format(historyTimeLayout)
	case run.Kind == history.KindOrganize && run.LogPath == "":
		return "nothing moved"
	default:
		return "ok"
	}
}

func renderPendingLogs(entries []journal.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		created := ""
		if !entry.Created.IsZero() {
			created = entry.Created.Format(historyTimeLayout)
		}
		rows = append(rows, []string{entry.Name, created, strconv.Itoa(entry.Seq), entry.ModTime.Local().Format(time.DateTime)})
	}
	return renderTable([]string{"Log", "Created", "Seq", "Modified"}, rows, nil,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
}
