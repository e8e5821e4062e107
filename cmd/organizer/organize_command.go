package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ItsSleepy/File-Organiser/internal/organizer"
	"github.com/ItsSleepy/File-Organiser/internal/services"
)

func runOrganize(cmd *cobra.Command, ctx *commandContext, folder string, mode organizer.Mode) error {
	sess, err := ctx.openSession(cmd, folder, sessionOptions{mutating: mode == organizer.ModeExecute})
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if mode == organizer.ModePreview {
		fmt.Fprintln(out, renderStatusLine(statusInfo, "Running in dry run mode; no files will be moved", colorize))
	}

	result, err := organizeWith(sess, mode)
	if shouldReportOrganize(result, err) {
		writeOrganizeResult(out, result, colorize)
		if path := sess.runLogPath(); path != "" && mode == organizer.ModeExecute {
			fmt.Fprintln(out, renderStatusLine(statusInfo, "Run log: "+path, colorize))
		}
	}
	return err
}

// shouldReportOrganize decides whether a run that ended with err still has
// stats worth printing. Fatal errors before anything moved print nothing.
func shouldReportOrganize(result *organizer.Result, err error) bool {
	if result == nil {
		return false
	}
	if !services.IsFatal(err) || result.Cancelled {
		return true
	}
	return result.Stats.Total() > 0 || len(result.Failures) > 0
}

func organizeWith(sess *session, mode organizer.Mode) (*organizer.Result, error) {
	o, err := organizer.New(sess.target, sess.cfg, sess.table, sess.logger, sess.organizerOptions()...)
	if err != nil {
		return nil, err
	}
	return o.Run(sess.ctx, mode)
}

func previewWith(sess *session) (*organizer.Preview, error) {
	o, err := organizer.New(sess.target, sess.cfg, sess.table, sess.logger)
	if err != nil {
		return nil, err
	}
	return o.Preview(sess.ctx)
}

func runPreview(cmd *cobra.Command, ctx *commandContext, folder string) error {
	sess, err := ctx.openSession(cmd, folder, sessionOptions{})
	if err != nil {
		return err
	}
	defer sess.Close()

	preview, err := previewWith(sess)
	if err != nil {
		return err
	}
	writePreview(cmd.OutOrStdout(), preview, shouldColorize(cmd.OutOrStdout()))
	return nil
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview [folder]",
		Short: "List the files that would be organized, grouped by category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, ctx, folderArg(args))
		},
	}
}
