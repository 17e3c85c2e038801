package organizer

import "tidyfin/internal/identification"

// Summarize counts plan entries.
func Summarize(entries []PlanEntry) PlanSummary {
	summary := PlanSummary{Total: len(entries)}
	for _, entry := range entries {
		if entry.Action != ActionMove {
			summary.ManualReview++
			continue
		}
		switch entry.MediaType {
		case identification.MediaTypeMovie:
			summary.Movies++
		case identification.MediaTypeTVEpisode:
			summary.Shows++
		}
	}
	return summary
}

// SummarizeOutcomes counts execution outcomes by status and media type.
func SummarizeOutcomes(outcomes []Outcome) RunSummary {
	summary := RunSummary{
		Total:    len(outcomes),
		ByStatus: make(map[Status]map[identification.MediaType]int),
	}
	for _, outcome := range outcomes {
		kind := outcome.Entry.MediaType
		switch outcome.Status {
		case StatusMoved:
			if kind == identification.MediaTypeTVEpisode {
				summary.ShowsOrganized++
			} else {
				summary.MoviesOrganized++
			}
		case StatusReviewed:
			summary.ManualReview++
		case StatusFailed:
			summary.Errors++
		}
		byKind := summary.ByStatus[outcome.Status]
		if byKind == nil {
			byKind = make(map[identification.MediaType]int)
			summary.ByStatus[outcome.Status] = byKind
		}
		byKind[kind]++
	}
	return summary
}
