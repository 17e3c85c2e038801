package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "preview",
		Aliases: []string{"scan"},
		Short:   "Show where every video file would go without moving anything",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openPipeline(cmd, false)
			if err != nil {
				return err
			}
			defer p.Close()

			plan, err := p.plan(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, plan)
			}
			out := cmd.OutOrStdout()
			if len(plan.Entries) == 0 {
				fmt.Fprintf(out, "No video files found in %s\n", p.cfg.Paths.SourceDir)
				return nil
			}
			renderPlan(out, plan, p.cfg.Paths.SourceDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")
	return cmd
}
