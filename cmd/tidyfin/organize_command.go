package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tidyfin/internal/organizer"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Plan and then move video files into the library",
		Long: "Plan and then move video files into the library.\n\n" +
			"Confident matches are moved under the movie or show root. Everything\n" +
			"else goes to the review directory, or stays in place when none is set.\n" +
			"Existing files are never overwritten.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openPipeline(cmd, !dryRun)
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			plan, err := p.plan(cmd.Context())
			if err != nil {
				return err
			}
			if len(plan.Entries) == 0 && !asJSON {
				fmt.Fprintf(out, "No video files found in %s\n", p.cfg.Paths.SourceDir)
				return nil
			}

			report, err := p.engine.Execute(cmd.Context(), plan, organizer.ExecuteOptions{DryRun: dryRun})
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderReport(out, report, p.cfg.Paths.SourceDir)
			}
			if report.Summary.Errors > 0 {
				return fmt.Errorf("%d file(s) could not be organized", report.Summary.Errors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would happen without touching the filesystem")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run report as JSON")
	return cmd
}
