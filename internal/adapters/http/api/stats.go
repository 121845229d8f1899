package api

import (
	"net/http"
	"time"
)

// StatsProvider reports a snapshot of service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a stats handler stamping snapshots with now.
func NewStatsHandler(provider StatsProvider, now func() time.Time) *StatsHandler {
	return &StatsHandler{provider: provider, now: now}
}

// HandleStats writes the provider's snapshot plus the instant it was taken.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	snapshot := h.provider.GetStats()
	body := make(map[string]interface{}, len(snapshot)+1)
	for k, v := range snapshot {
		body[k] = v
	}
	body["generatedAt"] = h.now().UTC().Format(time.RFC3339)

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, body)
}
