package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tidyfin/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent organize runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			j, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(runID); id != "" {
				outcomes, err := j.Outcomes(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, outcomes)
				}
				if len(outcomes) == 0 {
					fmt.Fprintf(out, "No outcomes recorded for run %s\n", id)
					return nil
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					Headers: []string{"#", "File", "Type", "Status", "Result"},
					Rows:    historyOutcomeRows(outcomes),
					Aligns:  []columnAlignment{alignRight},
				}))
				return nil
			}

			runs, err := j.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No organize runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				Headers: []string{"Run", "Started", "Files", "Movies", "Episodes", "Review", "Errors"},
				Rows:    historyRunRows(runs),
				Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				Footer:  historyTotals(runs),
			}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the files handled by one run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print history as JSON")
	return cmd
}

func historyRunRows(runs []journal.RunRecord) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.RunID,
			run.StartedAt.Local().Format(time.DateTime),
			strconv.Itoa(run.Total),
			strconv.Itoa(run.MoviesOrganized),
			strconv.Itoa(run.ShowsOrganized),
			strconv.Itoa(run.ManualReview),
			strconv.Itoa(run.Errors),
		})
	}
	return rows
}

// historyTotals sums the listed runs for the table footer.
func historyTotals(runs []journal.RunRecord) []string {
	var total, movies, shows, review, errs int
	for _, run := range runs {
		total += run.Total
		movies += run.MoviesOrganized
		shows += run.ShowsOrganized
		review += run.ManualReview
		errs += run.Errors
	}
	return []string{
		fmt.Sprintf("%d run(s)", len(runs)),
		"",
		strconv.Itoa(total),
		strconv.Itoa(movies),
		strconv.Itoa(shows),
		strconv.Itoa(review),
		strconv.Itoa(errs),
	}
}

func historyOutcomeRows(outcomes []journal.OutcomeRecord) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		result := outcome.FinalPath
		if outcome.ErrorDetail != "" {
			result = outcome.ErrorDetail
		}
		rows = append(rows, []string{
			strconv.Itoa(outcome.Position + 1),
			outcome.SourcePath,
			mediaTypeLabel(outcome.MediaType),
			statusText(outcome.Status),
			result,
		})
	}
	return rows
}
