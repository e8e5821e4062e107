package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/ItsSleepy/File-Organiser/internal/organizer"
	"github.com/ItsSleepy/File-Organiser/internal/undo"
)

// renderStats draws the per-category table with each category's share of the
// total, sorted by category name.
func renderStats(stats organizer.Stats) string {
	total := stats.Total()
	if total == 0 {
		return ""
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		count := stats[name]
		rows = append(rows, []string{name, strconv.Itoa(count), formatShare(count, total)})
	}
	footer := []string{"Total", strconv.Itoa(total), "100.0%"}
	return renderTable([]string{"Category", "Files", "Share"}, rows, footer,
		[]columnAlignment{alignLeft, alignRight, alignRight})
}

func formatShare(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)*100/float64(total))
}

func writeOrganizeResult(out io.Writer, result *organizer.Result, colorize bool) {
	title := "File organization statistics"
	if result.Mode == organizer.ModePreview {
		title = "Dry run statistics"
	}
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	if result.Stats.Total() == 0 {
		fmt.Fprintln(out, renderStatusLine(statusInfo, "No files were organized.", colorize))
	} else {
		fmt.Fprintln(out, renderStats(result.Stats))
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintln(out, renderStatusLine(statusInfo,
			fmt.Sprintf("%d identical file(s) already in place were left untouched", len(result.Skipped)), colorize))
	}
	for _, failure := range result.Failures {
		fmt.Fprintln(out, renderStatusLine(statusWarn, failure.Error(), colorize))
	}

	switch {
	case result.Cancelled:
		fmt.Fprintln(out, renderStatusLine(statusWarn,
			fmt.Sprintf("Cancelled after %d move(s); the completed moves can be undone", len(result.Records)), colorize))
	case result.Mode == organizer.ModePreview:
		fmt.Fprintln(out, renderStatusLine(statusOK, "Dry run completed; no files were moved", colorize))
	case len(result.Records) > 0:
		fmt.Fprintln(out, renderStatusLine(statusOK, "File organization completed", colorize))
	}
	if result.LogPath != "" {
		fmt.Fprintln(out, renderStatusLine(statusInfo,
			"Transaction log: "+filepath.Base(result.LogPath)+" (run with --undo to reverse)", colorize))
	}
}

func writePreview(out io.Writer, preview *organizer.Preview, colorize bool) {
	for _, line := range renderSectionHeader("Organization preview", colorize) {
		fmt.Fprintln(out, line)
	}
	if preview.Total == 0 {
		fmt.Fprintln(out, renderStatusLine(statusInfo, "No files found to organize in this folder.", colorize))
		return
	}
	for _, group := range preview.Groups {
		fmt.Fprintf(out, "\n%s (%d files, %s)\n", group.Category, len(group.Files), humanize.IBytes(uint64(group.Bytes)))
		for _, file := range group.Files {
			fmt.Fprintf(out, "%s- %s\n", statusIndent, file.Name)
		}
	}
	fmt.Fprintf(out, "\nTotal: %d files, %s\n", preview.Total, humanize.IBytes(uint64(preview.Bytes)))
}

// previewSummary is the per-category count table shown before choosing a mode.
func previewSummary(preview *organizer.Preview) string {
	rows := make([][]string, 0, len(preview.Groups))
	for _, group := range preview.Groups {
		rows = append(rows, []string{group.Category, strconv.Itoa(len(group.Files)), humanize.IBytes(uint64(group.Bytes))})
	}
	footer := []string{"Total", strconv.Itoa(preview.Total), humanize.IBytes(uint64(preview.Bytes))}
	return renderTable([]string{"Category", "Files", "Size"}, rows, footer,
		[]columnAlignment{alignLeft, alignRight, alignRight})
}

func writeUndoResult(out io.Writer, result *undo.Result, colorize bool) {
	for _, line := range renderSectionHeader("Undo", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine(statusInfo, "Transaction log: "+filepath.Base(result.LogPath), colorize))
	fmt.Fprintln(out, renderStatusLine(statusOK, fmt.Sprintf("Restored %d file(s)", len(result.Restored)), colorize))
	for _, record := range result.Missing {
		fmt.Fprintln(out, renderStatusLine(statusWarn,
			fmt.Sprintf("%s no longer exists; skipped", record.Destination), colorize))
	}
	for _, failure := range result.Failed {
		fmt.Fprintln(out, renderStatusLine(statusError, failure.Error(), colorize))
	}
	for _, dir := range result.Pruned {
		fmt.Fprintln(out, renderStatusLine(statusInfo, "Removed empty folder "+filepath.Base(dir), colorize))
	}
	if result.ConsumedPath != "" {
		fmt.Fprintln(out, renderStatusLine(statusInfo, "Log marked undone: "+filepath.Base(result.ConsumedPath), colorize))
	}
}
