package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/baharkarakas/market-backend/internal/api"
	"github.com/baharkarakas/market-backend/internal/auth"
	"github.com/baharkarakas/market-backend/internal/config"
	"github.com/baharkarakas/market-backend/internal/services"
)

// TestConfig returns a dev configuration with rate limiting disabled.
func TestConfig() *config.Config {
	cfg := config.New()
	cfg.Env = "dev"
	cfg.RateRPS = 0
	cfg.JWTAccessSecret = "test-access-secret"
	cfg.JWTRefreshSecret = "test-refresh-secret"
	cfg.UploadMaxBytes = 1 << 10
	return cfg
}

// TokenManager matches the secrets of TestConfig.
func TokenManager(cfg *config.Config) *auth.TokenManager {
	return auth.NewTokenManager(cfg.JWTIssuer, cfg.JWTAccessSecret, cfg.JWTRefreshSecret, time.Minute, time.Hour)
}

// Services wires every service to the store. Side effects run synchronously.
func Services(cfg *config.Config, s *Store) api.Services {
	repos := s.Repos()
	audit := services.NewAuditor(repos.AuditLogs, nil)
	roles := services.NewRoleService(repos.Roles, audit)
	return api.Services{
		Auth:        services.NewAuthService(repos.Users, repos.Sessions, TokenManager(cfg), cfg.JWTIssuer),
		Profile:     services.NewProfileService(repos.Users, repos.Balances),
		Roles:       roles,
		Bots:        services.NewBotService(repos.Bots),
		Blocks:      services.NewBlockService(repos.Blocks),
		Marketplace: services.NewMarketplaceService(repos.Marketplace, audit),
		Exchange:    services.NewExchangeService(repos.Exchange, nil, audit),
		Support:     services.NewSupportService(repos.Support, roles, audit),
		Files:       services.NewFileService(repos.Files, cfg.UploadMaxBytes),
		Newsletter:  services.NewNewsletterService(repos.Newsletter, nil),
	}
}

// NewRouter builds the production router over a fresh store.
func NewRouter() (http.Handler, *Store) {
	return NewRouterWith(TestConfig())
}

// NewRouterWith is NewRouter with a caller-tuned configuration.
func NewRouterWith(cfg *config.Config) (http.Handler, *Store) {
	s := NewStore()
	return api.NewRouter(cfg, Services(cfg, s)), s
}

// MakeRequest creates an HTTP test request with an optional JSON body.
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// As returns the dev identity header for userID.
func As(userID int64) map[string]string {
	return map[string]string{"X-User-Id": strconv.FormatInt(userID, 10)}
}

// Do serves req on h and returns the recorder.
func Do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeJSON decodes the response body into v.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v (body %s)", err, w.Body.String())
	}
}
