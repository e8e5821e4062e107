package main

import (
	"github.com/spf13/cobra"

	"github.com/ItsSleepy/File-Organiser/internal/organizer"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var logFormatFlag string
	var dryRun bool
	var undoFlag bool
	var preview bool

	ctx := newCommandContext(&configFlag, &logLevelFlag, &logFormatFlag)

	rootCmd := &cobra.Command{
		Use:   "organizer [folder]",
		Short: "Sort the files in a folder into category subfolders",
		Long: "Moves every file directly inside the folder (default: current directory) into a\n" +
			"subfolder named after its category. Each run writes a transaction log to\n" +
			"organization_logs/ so it can be reversed with --undo.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := folderArg(args)
			switch {
			case undoFlag:
				return runUndo(cmd, ctx, folder, undoOptions{})
			case preview:
				return runPreview(cmd, ctx, folder)
			case dryRun:
				return runOrganize(cmd, ctx, folder, organizer.ModePreview)
			case len(args) == 0 && cmd.Flags().NFlag() == 0 && isInteractiveTerminal(cmd):
				return runInteractive(cmd, ctx)
			default:
				return runOrganize(cmd, ctx, folder, organizer.ModeExecute)
			}
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "Show what would be organized without moving files")
	flags.BoolVar(&undoFlag, "undo", false, "Undo the last organization")
	flags.BoolVar(&preview, "preview", false, "Show a detailed organization preview")
	rootCmd.MarkFlagsMutuallyExclusive("dry-run", "undo", "preview")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	persistent.StringVar(&logLevelFlag, "log-level", "", "Logging level (DEBUG, INFO, WARNING, ERROR)")
	persistent.StringVar(&logFormatFlag, "log-format", "", "Log output format (console, json)")

	rootCmd.AddCommand(newUndoCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newCategoriesCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newInteractiveCommand(ctx))

	return rootCmd
}

func folderArg(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return "."
	}
	return args[0]
}
