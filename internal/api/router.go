package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coderipple/coderipple-go/internal/api/middleware"
	"github.com/coderipple/coderipple-go/internal/gateway"
	"github.com/coderipple/coderipple-go/internal/model"
	"github.com/coderipple/coderipple-go/internal/services/room"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Controller room.ControllerInterface
	Gateway    *gateway.Gateway
	Origins    middleware.OriginChecker
}

// NewRouter creates a new router with the REST surface and the websocket
// upgrade endpoint configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.CORS(cfg.Origins))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/rooms", roomsHandler(cfg.Controller)).Methods(http.MethodGet)

	r.HandleFunc("/ws", cfg.Gateway.HandleWS)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"game":   "coderipple",
	})
}

// roomsHandler lists rooms that are open to join
func roomsHandler(controller room.ControllerInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := controller.ListPublicRooms(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": map[string]string{
					"code":    "INTERNAL_ERROR",
					"message": "Internal server error",
				},
			})
			return
		}
		if rooms == nil {
			rooms = []model.Summary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
