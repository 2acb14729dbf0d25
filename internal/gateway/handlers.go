package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"quant-systemv1/internal/model"
)

// SelectionReader returns the last published selection of a strategy,
// nil when none exists.
type SelectionReader interface {
	LatestSelection(ctx context.Context, strategy string) (*model.CompositeScore, error)
}

// NewRouter routes the WebSocket feed and the REST lookups:
//
//	GET /ws?strategy=a,b
//	GET /api/selections/latest            latest envelope per channel seen
//	GET /api/selections/{strategy}        last published selection
func NewRouter(h *Hub, selections SelectionReader) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/ws", h).Methods(http.MethodGet)
	r.HandleFunc("/api/selections/latest", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, h.Latest())
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/selections/{strategy}", func(w http.ResponseWriter, req *http.Request) {
		strategy := mux.Vars(req)["strategy"]
		sc, err := selections.LatestSelection(req.Context(), strategy)
		switch {
		case err != nil:
			slog.Warn("latest selection lookup failed", "strategy", strategy, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		case sc == nil:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no selection published for " + strategy})
		default:
			writeJSON(w, http.StatusOK, sc)
		}
	}).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
