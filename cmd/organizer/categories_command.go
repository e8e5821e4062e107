package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCategoriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show the active category table in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			table, err := cfg.CategoryTable()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(table.Categories()))
			for _, c := range table.Categories() {
				extensions := strings.Join(c.Extensions(), " ")
				if extensions == "" {
					extensions = "(everything else)"
				}
				rows = append(rows, []string{c.Name(), extensions, c.Description()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Category", "Extensions", "Description"}, rows, nil, nil))
			return nil
		},
	}
}
