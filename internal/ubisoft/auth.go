package ubisoft

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/siege-stats/internal/config"
	"github.com/siege-stats/internal/domain"
)

// trustedDeviceChallenge is required by the session endpoint alongside
// Basic credentials.
const trustedDeviceChallenge = `{"category":"trustedDevice","challengeId":"00000000-0000-0000-0000-000000000000"}`

// Authenticator obtains and memoizes a bearer credential for the
// Ubisoft API. The credential is a single slot shared by the whole
// process; concurrent refreshes for an expired or absent credential
// are coalesced into one upstream exchange.
type Authenticator struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	email      string
	password   string
	logger     *slog.Logger

	mu    sync.Mutex
	cred  *domain.Credential
	group singleflight.Group
}

// NewAuthenticator creates an authenticator from the Ubisoft config
func NewAuthenticator(cfg *config.UbisoftConfig, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.ProfilesBaseURL,
		appID:      cfg.AppID,
		email:      cfg.Email,
		password:   cfg.Password,
		logger:     logger,
	}
}

// Credential returns the memoized credential while its expiration is
// strictly in the future, otherwise performs a fresh authentication
// exchange. All concurrent callers observing a stale credential share
// a single exchange and receive the same credential or the same error.
func (a *Authenticator) Credential(ctx context.Context) (*domain.Credential, error) {
	a.mu.Lock()
	cred := a.cred
	a.mu.Unlock()
	if cred.Valid(time.Now()) {
		return cred, nil
	}

	v, err, _ := a.group.Do("session", func() (interface{}, error) {
		// Another waiter may have refreshed while we queued
		a.mu.Lock()
		cred := a.cred
		a.mu.Unlock()
		if cred.Valid(time.Now()) {
			return cred, nil
		}

		fresh, err := a.exchange(ctx)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		a.cred = fresh
		a.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Credential), nil
}

type sessionResponse struct {
	Ticket                        string `json:"ticket"`
	SessionID                     string `json:"sessionId"`
	Expiration                    string `json:"expiration"`
	TwoFactorAuthenticationTicket string `json:"twoFactorAuthenticationTicket"`
}

// exchange performs the session-creation call with HTTP Basic
// credentials and the trusted-device challenge header.
func (a *Authenticator) exchange(ctx context.Context) (*domain.Credential, error) {
	a.logger.Info("authenticating with ubisoft", "email", a.email)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v3/profiles/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("building auth request: %w", err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(a.email + ":" + a.password))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Ubi-AppId", a.appID)
	req.Header.Set("Ubi-Challenge", trustedDeviceChallenge)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.VendorError{
			Kind:   domain.ErrAuthenticationFailed,
			Status: resp.StatusCode,
			Text:   http.StatusText(resp.StatusCode),
			Body:   string(body),
		}
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decoding auth response: %w", err)
	}

	// A two-factor ticket without a session ticket is terminal: retrying
	// cannot fix it, the account itself has to be reconfigured.
	if session.TwoFactorAuthenticationTicket != "" && session.Ticket == "" {
		return nil, domain.ErrTwoFactorRequired
	}

	expiration, err := time.Parse(time.RFC3339, session.Expiration)
	if err != nil {
		return nil, fmt.Errorf("parsing credential expiration %q: %w", session.Expiration, err)
	}

	a.logger.Info("ubisoft session established", "expiration", expiration)

	return &domain.Credential{
		Ticket:     session.Ticket,
		SessionID:  session.SessionID,
		Expiration: expiration,
	}, nil
}
