package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/metrics"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/middleware"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/registry"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/matchmaking"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	WSHandler   http.Handler
	Registry    *registry.Registry
	Matchmaking *matchmaking.Service
	Metrics     *metrics.Metrics
}

// NewRouter creates the router. The websocket endpoint sits outside the
// middleware chain so the upgrade keeps a bare ResponseWriter.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Handle("/ws", cfg.WSHandler)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/status", statusHandler(cfg)).Methods(http.MethodGet)
	api.HandleFunc("/metrics", metricsHandler(cfg.Metrics)).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// statusResponse is the operational snapshot exposed at /status.
type statusResponse struct {
	ConnectedPlayers int `json:"connectedPlayers"`
	QueueSize        int `json:"queueSize"`
}

func statusHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := cfg.Matchmaking.QueueSize(r.Context())
		if err != nil {
			cfg.Logger.Error("queue size lookup failed", slog.Any("error", err))
			http.Error(w, "status unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, statusResponse{
			ConnectedPlayers: cfg.Registry.ConnectedCount(),
			QueueSize:        size,
		})
	}
}

func metricsHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.Get())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
