// Package handler provides the HTTP API for the stats service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/siege-stats/internal/domain"
	"github.com/siege-stats/internal/websocket"
)

// StatsService is the slice of the stats service the handlers use
type StatsService interface {
	GetPlayerStats(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error)
	GetPlayerStatsByProfileID(ctx context.Context, profileID string, platform domain.Platform) (*domain.PlayerStats, error)
	RefreshPlayerStats(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error)
}

// PlayerTracker manages the set of players enrolled for background refresh
type PlayerTracker interface {
	TrackPlayer(ctx context.Context, username string, platform domain.Platform) error
	UntrackPlayer(ctx context.Context, username string, platform domain.Platform) error
	ListTrackedPlayers(ctx context.Context) ([]domain.TrackedPlayer, error)
}

// Handler provides HTTP handlers for the stats API
type Handler struct {
	service StatsService
	tracker PlayerTracker
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service StatsService, tracker PlayerTracker, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		tracker: tracker,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/players", func(r chi.Router) {
			r.Get("/{username}/stats", h.GetPlayerStats)
			r.Post("/{username}/refresh", h.RefreshPlayerStats)

			// Tracked players
			r.Post("/track", h.TrackPlayer)
			r.Delete("/track", h.UntrackPlayer)
			r.Get("/tracked", h.ListTrackedPlayers)
		})

		r.Get("/profiles/{profileID}/stats", h.GetProfileStats)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps service errors to HTTP statuses. Upstream
// vendor failures surface as 502 so callers can tell them from our own
// faults.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var ve *domain.VendorError
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, domain.ErrPlayerNotFound)
	case errors.Is(err, domain.ErrTwoFactorRequired):
		h.writeError(w, http.StatusBadGateway, domain.ErrTwoFactorRequired)
	case errors.As(err, &ve):
		// Echo the failing operation, not a generic lookup failure
		h.logger.Error("upstream request failed", "error", err)
		h.writeError(w, http.StatusBadGateway, ve.Kind)
	default:
		h.logger.Error("stats request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// platformParam reads and validates the platform query parameter,
// defaulting to pc
func platformParam(r *http.Request) (domain.Platform, error) {
	raw := r.URL.Query().Get("platform")
	if raw == "" {
		raw = string(domain.PlatformPC)
	}
	return domain.ParsePlatform(raw)
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetPlayerStats returns a player's aggregated stats by display name
func (h *Handler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	platform, err := platformParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := h.service.GetPlayerStats(r.Context(), username, platform)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, stats)
}

// GetProfileStats returns a player's aggregated stats by profile ID
func (h *Handler) GetProfileStats(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	if profileID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	platform, err := platformParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := h.service.GetPlayerStatsByProfileID(r.Context(), profileID, platform)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, stats)
}

// RefreshPlayerStats forces a live re-aggregation, bypassing the cache
func (h *Handler) RefreshPlayerStats(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	platform, err := platformParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := h.service.RefreshPlayerStats(r.Context(), username, platform)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, stats)
}

// trackRequest is the body of track and untrack calls
type trackRequest struct {
	Username string `json:"username"`
	Platform string `json:"platform"`
}

func (h *Handler) decodeTrackRequest(r *http.Request) (string, domain.Platform, error) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", domain.ErrInvalidRequest
	}
	if strings.TrimSpace(req.Username) == "" {
		return "", "", domain.ErrInvalidRequest
	}
	if req.Platform == "" {
		req.Platform = string(domain.PlatformPC)
	}
	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		return "", "", err
	}
	return req.Username, platform, nil
}

// TrackPlayer enrolls a player for background refresh
func (h *Handler) TrackPlayer(w http.ResponseWriter, r *http.Request) {
	username, platform, err := h.decodeTrackRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.tracker.TrackPlayer(r.Context(), username, platform); err != nil {
		h.logger.Error("failed to track player", "username", username, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    map[string]string{"status": "tracked"},
	})
}

// UntrackPlayer removes a player from background refresh
func (h *Handler) UntrackPlayer(w http.ResponseWriter, r *http.Request) {
	username, platform, err := h.decodeTrackRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.tracker.UntrackPlayer(r.Context(), username, platform); err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, domain.ErrPlayerNotFound)
			return
		}
		h.logger.Error("failed to untrack player", "username", username, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "untracked"})
}

// ListTrackedPlayers returns all players enrolled for background refresh
func (h *Handler) ListTrackedPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.tracker.ListTrackedPlayers(r.Context())
	if err != nil {
		h.logger.Error("failed to list tracked players", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, players)
}
