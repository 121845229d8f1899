package api

import (
	"net/http"

	"github.com/okian/scoreboard/internal/domain/submission"
	"github.com/okian/scoreboard/pkg/logger"
)

// maxBodyBytes bounds a submission body.
const maxBodyBytes = 64 << 10

// SubmitHandler handles score submissions.
type SubmitHandler struct {
	deps   SubmitDependencies
	logger logger.Logger
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies, log logger.Logger) *SubmitHandler {
	return &SubmitHandler{deps: deps, logger: log}
}

type submitResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// HandlePostScore handles POST /score/new requests.
func (h *SubmitHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sub, err := submission.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Debug(r.Context(), "rejected submission body", logger.Error(err))
		writeKindError(w, err)
		return
	}
	in, err := sub.Input()
	if err != nil {
		h.logger.Debug(r.Context(), "rejected submission", logger.Error(err))
		writeKindError(w, err)
		return
	}
	id, err := h.deps.Submit(r.Context(), in)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Success: true, ID: id})
}
