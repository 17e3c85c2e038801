package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"tidyfin/internal/identification"
	"tidyfin/internal/organizer"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorize(value, color string, enabled bool) string {
	if !enabled || color == "" {
		return value
	}
	return color + value + ansiReset
}

func mediaTypeLabel(kind identification.MediaType) string {
	switch kind {
	case identification.MediaTypeMovie:
		return "Movie"
	case identification.MediaTypeTVEpisode:
		return "Episode"
	default:
		return "Unknown"
	}
}

func tierLabel(tier identification.Tier, color bool) string {
	switch tier {
	case identification.TierHigh:
		return colorize("high", ansiGreen, color)
	case identification.TierMedium:
		return colorize("medium", ansiYellow, color)
	default:
		return colorize("low", ansiRed, color)
	}
}

func statusLabel(status organizer.Status, color bool) string {
	switch status {
	case organizer.StatusMoved:
		return colorize("✔ moved", ansiGreen, color)
	case organizer.StatusReviewed:
		return colorize("⚠ review", ansiYellow, color)
	case organizer.StatusFailed:
		return colorize("✖ failed", ansiRed, color)
	default:
		return string(status)
	}
}

func statusText(status organizer.Status) string {
	switch status {
	case organizer.StatusMoved:
		return "moved"
	case organizer.StatusReviewed:
		return "review"
	case organizer.StatusFailed:
		return "failed"
	default:
		return string(status)
	}
}

// relativeTo shortens path for display when it lives under root.
func relativeTo(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func planRows(plan *organizer.Plan, source string, color bool) [][]string {
	rows := make([][]string, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		target := entry.DestinationPath
		if entry.Action == organizer.ActionReview {
			target = "review: " + entry.ReviewReason
		}
		rows = append(rows, []string{
			relativeTo(source, entry.SourcePath),
			mediaTypeLabel(entry.MediaType),
			fmt.Sprintf("%.2f", entry.Match.ConfidenceScore),
			tierLabel(entry.Match.Tier, color),
			target,
		})
	}
	return rows
}

func renderPlan(w io.Writer, plan *organizer.Plan, source string) {
	color := shouldColorize(w)
	headers := []string{"File", "Type", "Score", "Tier", "Destination"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
	fmt.Fprintln(w, renderTable(tableSpec{Headers: headers, Rows: planRows(plan, source, color), Aligns: aligns}))
	s := plan.Summary
	fmt.Fprintf(w, "%d file(s): %d movie(s), %d episode(s), %d for manual review\n",
		s.Total, s.Movies, s.Shows, s.ManualReview)
}

func outcomeRows(report *organizer.Report, source string, color bool) [][]string {
	rows := make([][]string, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		detail := outcome.FinalPath
		switch {
		case outcome.ErrorDetail != "":
			detail = outcome.ErrorDetail
		case outcome.Note != "":
			detail = outcome.Note
		}
		rows = append(rows, []string{
			relativeTo(source, outcome.Entry.SourcePath),
			mediaTypeLabel(outcome.Entry.MediaType),
			statusLabel(outcome.Status, color),
			detail,
		})
	}
	return rows
}

func renderReport(w io.Writer, report *organizer.Report, source string) {
	color := shouldColorize(w)
	headers := []string{"File", "Type", "Status", "Result"}
	fmt.Fprintln(w, renderTable(tableSpec{Headers: headers, Rows: outcomeRows(report, source, color)}))
	fmt.Fprintln(w, runSummaryLine(report))
}

func runSummaryLine(report *organizer.Report) string {
	s := report.Summary
	prefix := "Organized"
	if report.DryRun {
		prefix = "Dry run"
	}
	return fmt.Sprintf("%s %d file(s): %d movie(s), %d episode(s), %d for manual review, %d error(s)",
		prefix, s.Total, s.MoviesOrganized, s.ShowsOrganized, s.ManualReview, s.Errors)
}
