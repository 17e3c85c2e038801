package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"tidyfin/internal/identification"
	"tidyfin/internal/metrics"
	"tidyfin/internal/organizer"
)

func TestObserveLookup(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveLookup("movie", "ok", 120*time.Millisecond)
	m.ObserveLookup("movie", "ok", 80*time.Millisecond)
	m.ObserveLookup("episode", "", time.Millisecond)

	if got := testutil.ToFloat64(m.CatalogRequests.WithLabelValues("movie", "ok")); got != 2 {
		t.Fatalf("movie/ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CatalogRequests.WithLabelValues("episode", "unknown")); got != 1 {
		t.Fatalf("episode/unknown = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.CatalogRequestDuration); got != 2 {
		t.Fatalf("duration series = %d, want 2", got)
	}
}

func TestObservePlan(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObservePlan(&organizer.Plan{Entries: []organizer.PlanEntry{
		{MediaType: identification.MediaTypeMovie, Action: organizer.ActionMove},
		{MediaType: identification.MediaTypeMovie, Action: organizer.ActionMove},
		{MediaType: identification.MediaTypeUnknown, Action: organizer.ActionReview},
	}})
	m.ObservePlan(nil)

	if got := testutil.ToFloat64(m.PlannedFiles.WithLabelValues("movie", "move")); got != 2 {
		t.Fatalf("movie/move = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PlannedFiles.WithLabelValues("unknown", "review")); got != 1 {
		t.Fatalf("unknown/review = %v, want 1", got)
	}
}

func TestObserveReport(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	started := time.Unix(1_700_000_000, 0)
	report := &organizer.Report{
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Outcomes: []organizer.Outcome{
			{Entry: organizer.PlanEntry{MediaType: identification.MediaTypeTVEpisode}, Status: organizer.StatusMoved},
			{Entry: organizer.PlanEntry{MediaType: identification.MediaTypeMovie}, Status: organizer.StatusFailed},
		},
		Summary: organizer.RunSummary{Errors: 1},
	}
	m.ObserveReport(report)

	if got := testutil.ToFloat64(m.Outcomes.WithLabelValues("tv_episode", "moved")); got != 1 {
		t.Fatalf("tv_episode/moved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LastRunTimestamp); got != float64(started.Unix()+3) {
		t.Fatalf("last run timestamp = %v", got)
	}
	if got := testutil.ToFloat64(m.LastRunDuration); got != 3 {
		t.Fatalf("last run duration = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.LastRunErrors); got != 1 {
		t.Fatalf("last run errors = %v, want 1", got)
	}
}

func TestObserveReportIgnoresDryRun(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveReport(&organizer.Report{
		DryRun:   true,
		Outcomes: []organizer.Outcome{{Status: organizer.StatusMoved}},
	})
	if got := testutil.CollectAndCount(m.Outcomes); got != 0 {
		t.Fatalf("dry run recorded %d outcome series", got)
	}
	if got := testutil.ToFloat64(m.LastRunTimestamp); got != 0 {
		t.Fatalf("dry run set timestamp %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveLookup("tv", "ok", time.Second)

	path := filepath.Join(t.TempDir(), "tidyfin.prom")
	if err := metrics.WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `tidyfin_catalog_requests_total{operation="tv",outcome="ok"} 1`) {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
}

func TestWriteTextfileEmptyPathIsNoop(t *testing.T) {
	if err := metrics.WriteTextfile("  ", prometheus.NewRegistry()); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
}
