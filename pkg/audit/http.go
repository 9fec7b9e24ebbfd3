package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/physickd/platform/pkg/common/logger"
)

// Lister is the read side of Repository.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]PredictionLog, error)
}

type HTTPHandler struct {
	logs Lister
}

func NewHTTPHandler(logs Lister) *HTTPHandler {
	return &HTTPHandler{logs: logs}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/predictions", h.handleRecent).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	logs, err := h.logs.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list prediction logs")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"predictions": logs,
		"count":       len(logs),
	})
}
