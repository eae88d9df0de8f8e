package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// maxTopN bounds the ?top= parameter.
const maxTopN = 100

// Handler exposes the aggregator over HTTP.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats handles GET /api/v1/analytics. An optional top=n (1 to 100) sets
// how many entries each query ranking holds.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	n := DefaultTopN
	if raw := r.URL.Query().Get("top"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxTopN {
			h.write(w, http.StatusBadRequest, map[string]string{"error": "top must be an integer between 1 and 100"})
			return
		}
		n = v
	}
	h.write(w, http.StatusOK, h.aggregator.StatsTop(n))
}

// Runs handles GET /api/v1/analytics/runs.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	runs := h.aggregator.Runs()
	if runs == nil {
		runs = []RunEvent{}
	}
	h.write(w, http.StatusOK, runs)
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
