package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siege-stats/internal/domain"
	"github.com/siege-stats/internal/websocket"
)

type fakeService struct {
	getPlayerStats func(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error)
	byProfileID    func(ctx context.Context, profileID string, platform domain.Platform) (*domain.PlayerStats, error)
	refresh        func(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error)
}

func (f *fakeService) GetPlayerStats(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
	return f.getPlayerStats(ctx, username, platform)
}

func (f *fakeService) GetPlayerStatsByProfileID(ctx context.Context, profileID string, platform domain.Platform) (*domain.PlayerStats, error) {
	return f.byProfileID(ctx, profileID, platform)
}

func (f *fakeService) RefreshPlayerStats(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
	return f.refresh(ctx, username, platform)
}

type fakeTracker struct {
	tracked    []domain.TrackedPlayer
	trackErr   error
	untrackErr error
}

func (f *fakeTracker) TrackPlayer(ctx context.Context, username string, platform domain.Platform) error {
	if f.trackErr != nil {
		return f.trackErr
	}
	f.tracked = append(f.tracked, domain.TrackedPlayer{Username: username, Platform: platform})
	return nil
}

func (f *fakeTracker) UntrackPlayer(ctx context.Context, username string, platform domain.Platform) error {
	return f.untrackErr
}

func (f *fakeTracker) ListTrackedPlayers(ctx context.Context) ([]domain.TrackedPlayer, error) {
	return f.tracked, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestRouter(service StatsService, tracker PlayerTracker) http.Handler {
	logger := testLogger()
	return NewHandler(service, tracker, websocket.NewHub(logger), logger).Router()
}

func sampleStats() *domain.PlayerStats {
	return &domain.PlayerStats{
		Username: "e.ki",
		Platform: domain.PlatformPC,
		RankName: "Emerald II",
		MMR:      3521,
		KD:       1.11,
		WinRate:  54.3,
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetPlayerStats(t *testing.T) {
	service := &fakeService{
		getPlayerStats: func(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
			assert.Equal(t, "e.ki", username)
			assert.Equal(t, domain.PlatformPSN, platform)
			return sampleStats(), nil
		},
	}
	router := newTestRouter(service, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/e.ki/stats?platform=psn", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "e.ki", data["username"])
	assert.Equal(t, "Emerald II", data["rank_name"])
}

func TestGetPlayerStatsDefaultsPlatformToPC(t *testing.T) {
	service := &fakeService{
		getPlayerStats: func(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
			assert.Equal(t, domain.PlatformPC, platform)
			return sampleStats(), nil
		},
	}
	router := newTestRouter(service, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/e.ki/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPlayerStatsUnknownPlatform(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/e.ki/stats?platform=stadia", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "stadia")
}

func TestGetPlayerStatsNotFound(t *testing.T) {
	service := &fakeService{
		getPlayerStats: func(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
			return nil, domain.ErrPlayerNotFound
		},
	}
	router := newTestRouter(service, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/ghost/stats", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPlayerStatsVendorFailureIsBadGateway(t *testing.T) {
	service := &fakeService{
		getPlayerStats: func(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
			return nil, &domain.VendorError{Kind: domain.ErrSeasonalFetch, Status: http.StatusInternalServerError, Text: "Internal Server Error"}
		},
	}
	router := newTestRouter(service, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/e.ki/stats", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, domain.ErrSeasonalFetch.Error(), resp.Error,
		"the response names the failing operation")
}

func TestGetPlayerStatsAuthFailureIsBadGateway(t *testing.T) {
	service := &fakeService{
		getPlayerStats: func(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
			return nil, &domain.VendorError{Kind: domain.ErrAuthenticationFailed, Status: http.StatusUnauthorized, Text: "Unauthorized"}
		},
	}
	router := newTestRouter(service, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/e.ki/stats", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, domain.ErrAuthenticationFailed.Error(), resp.Error)
}

func TestGetProfileStats(t *testing.T) {
	service := &fakeService{
		byProfileID: func(ctx context.Context, profileID string, platform domain.Platform) (*domain.PlayerStats, error) {
			assert.Equal(t, "p-123", profileID)
			return sampleStats(), nil
		},
	}
	router := newTestRouter(service, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profiles/p-123/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshPlayerStats(t *testing.T) {
	refreshed := false
	service := &fakeService{
		refresh: func(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
			refreshed = true
			return sampleStats(), nil
		},
	}
	router := newTestRouter(service, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/players/e.ki/refresh", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, refreshed)
}

func TestTrackPlayer(t *testing.T) {
	tracker := &fakeTracker{}
	router := newTestRouter(&fakeService{}, tracker)

	body := strings.NewReader(`{"username":"e.ki","platform":"pc"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/players/track", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, tracker.tracked, 1)
	assert.Equal(t, "e.ki", tracker.tracked[0].Username)
}

func TestTrackPlayerRejectsEmptyUsername(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeTracker{})

	body := strings.NewReader(`{"username":"  "}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/players/track", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUntrackPlayerNotFound(t *testing.T) {
	tracker := &fakeTracker{untrackErr: domain.ErrPlayerNotFound}
	router := newTestRouter(&fakeService{}, tracker)

	body := strings.NewReader(`{"username":"ghost","platform":"pc"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/players/track", body))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTrackedPlayers(t *testing.T) {
	tracker := &fakeTracker{tracked: []domain.TrackedPlayer{
		{Username: "e.ki", Platform: domain.PlatformPC},
	}}
	router := newTestRouter(&fakeService{}, tracker)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/tracked", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	players, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, players, 1)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeTracker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
