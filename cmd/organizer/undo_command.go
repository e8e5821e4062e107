package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ItsSleepy/File-Organiser/internal/undo"
)

type undoOptions struct {
	logFile    string
	pruneEmpty bool
}

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var opts undoOptions
	cmd := &cobra.Command{
		Use:   "undo [folder]",
		Short: "Move files back to where the last organization found them",
		Long: "Reverses the newest transaction log that has not been undone yet, or the one\n" +
			"given with --log. The log is renamed with an .undone suffix afterwards.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(cmd, ctx, folderArg(args), opts)
		},
	}
	cmd.Flags().StringVar(&opts.logFile, "log", "", "Transaction log to undo (name or path)")
	cmd.Flags().BoolVar(&opts.pruneEmpty, "prune-empty", false, "Remove category folders left empty")
	return cmd
}

func runUndo(cmd *cobra.Command, ctx *commandContext, folder string, opts undoOptions) error {
	sess, err := ctx.openSession(cmd, folder, sessionOptions{mutating: true, existingLogsOnly: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := undoWith(sess, opts)
	if err != nil {
		return fmt.Errorf("undo failed: %w", err)
	}
	writeUndoResult(cmd.OutOrStdout(), result, shouldColorize(cmd.OutOrStdout()))
	if len(result.Failed) > 0 {
		return fmt.Errorf("undo finished with %d file(s) not restored", len(result.Failed))
	}
	return nil
}

func undoWith(sess *session, opts undoOptions) (*undo.Result, error) {
	var engineOpts []undo.Option
	if sess.history != nil {
		engineOpts = append(engineOpts, undo.WithHistory(sess.history))
	}
	if opts.pruneEmpty {
		engineOpts = append(engineOpts, undo.WithPruneEmpty(sess.table))
	}
	engine := undo.New(sess.target, sess.logsDir, sess.logger, engineOpts...)
	return engine.Undo(sess.ctx, undo.Explicit(opts.logFile))
}
