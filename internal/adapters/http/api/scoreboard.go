package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/query"
	"github.com/okian/scoreboard/internal/errs"
)

// ScoreboardHandler serves the ranked and most-recent feeds.
type ScoreboardHandler struct {
	deps             ScoreboardDependencies
	defaultTimeframe string
	now              func() time.Time
}

// NewScoreboardHandler creates a new scoreboard handler.
func NewScoreboardHandler(deps ScoreboardDependencies, defaultTimeframe string, now func() time.Time) *ScoreboardHandler {
	if now == nil {
		now = time.Now
	}
	return &ScoreboardHandler{deps: deps, defaultTimeframe: defaultTimeframe, now: now}
}

// HandleTop handles GET /scoreboard/top?total=N&timeframe=T&unique=B requests.
func (h *ScoreboardHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoreboard_top"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	total, err := parseTotal(op, q.Get("total"))
	if err != nil {
		writeKindError(w, err)
		return
	}
	unique, err := query.ParseBool("unique", q.Get("unique"))
	if err != nil {
		writeKindError(w, errs.Wrap(op, err))
		return
	}
	tf := q.Get("timeframe")
	if tf == "" {
		tf = h.defaultTimeframe
	}

	entries, err := h.deps.TopScores(r.Context(), tf, total, unique)
	if err != nil {
		writeKindError(w, err)
		return
	}
	h.respond(w, r, entries)
}

// HandleRecent handles GET /scoreboard/new?total=N requests.
func (h *ScoreboardHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoreboard_new"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	total, err := parseTotal(op, r.URL.Query().Get("total"))
	if err != nil {
		writeKindError(w, err)
		return
	}
	entries, err := h.deps.Recent(r.Context(), total)
	if err != nil {
		writeKindError(w, err)
		return
	}
	h.respond(w, r, entries)
}

func (h *ScoreboardHandler) respond(w http.ResponseWriter, r *http.Request, entries []model.RankedEntry) {
	if entries == nil {
		entries = []model.RankedEntry{}
	}
	if wantsText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = renderText(w, entries, h.now())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// parseTotal reads the required total parameter. The upper cap is enforced by
// the service.
func parseTotal(op, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errs.Newf(op, errs.ErrInvalidLimit, "total is required")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Newf(op, errs.ErrInvalidLimit, "total must be an integer, got %q", raw)
	}
	if err := query.ValidateLimit(op, n); err != nil {
		return 0, err
	}
	return n, nil
}

// wantsText reports whether the caller prefers a human-readable rendering.
func wantsText(r *http.Request) bool {
	accept := strings.ToLower(r.Header.Get("Accept"))
	return strings.Contains(accept, "text/plain") || strings.Contains(accept, "text/html")
}

// renderText writes entries as an aligned table with relative timestamps.
func renderText(w io.Writer, entries []model.RankedEntry, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tHEIGHT\tTOTAL\tBUILDING\tSCALING\tBLOCKS\tJUMPS\tFALLEN\tWHEN")
	for _, e := range entries {
		name := e.Name
		if e.Spurious {
			name += " (spurious)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.1fs\t%.1fs\t%.1fs\t%d\t%d\t%.1f\t%s\n",
			e.Rank, name, e.MaxHeight, e.TimeTotalS, e.TimeBuildingS, e.TimeScalingS,
			e.BlocksPlaced, e.Jumps, e.DistanceFallen,
			humanize.RelTime(e.Timestamp, now, "ago", "from now"))
	}
	return tw.Flush()
}
