package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/tallyhub/tallyhub/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "tallyhub_polls_created_total %d\n", snap.PollsCreated)
	writeMetric(w, "tallyhub_polls_closed_total %d\n", snap.PollsClosed)
	writeMetric(w, "tallyhub_polls_deleted_total %d\n", snap.PollsDeleted)
	writeMetric(w, "tallyhub_questions_created_total %d\n", snap.QuestionsCreated)

	writeMetric(w, "tallyhub_votes_accepted_total %d\n", snap.VotesAccepted)
	reasons := make([]string, 0, len(snap.VotesRejected))
	for reason := range snap.VotesRejected {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		writeMetric(w, "tallyhub_votes_rejected_total{reason=%q} %d\n", reason, snap.VotesRejected[reason])
	}

	writeMetric(w, "tallyhub_results_duration_seconds_count %d\n", snap.ResultsDurationCount)
	writeMetric(w, "tallyhub_results_duration_seconds_sum %.6f\n", float64(snap.ResultsDurationTotalNs)/1e9)

	writeMetric(w, "tallyhub_principal_cache_hits_total %d\n", snap.PrincipalCacheHits)
	writeMetric(w, "tallyhub_principal_cache_misses_total %d\n", snap.PrincipalCacheMisses)

	writeMetric(w, "tallyhub_events_published_total{status=\"success\"} %d\n", snap.EventsPublished)
	writeMetric(w, "tallyhub_events_published_total{status=\"dropped\"} %d\n", snap.EventsDropped)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
