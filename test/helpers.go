// Package test runs the assembled API against a migrated sqlite database.
package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/handler"
	"github.com/elebur/VoteAPI/internal/infrastructure/logger"
	"github.com/elebur/VoteAPI/internal/repository"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/security/ratelimit"
	"github.com/elebur/VoteAPI/internal/service"
	"github.com/elebur/VoteAPI/pkg/database"
)

var launchDay = domain.NewDate(2025, 5, 20)

// TestServerHelper serves the full router over a fresh sqlite database.
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Store  domain.Store
	t      *testing.T
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()
	ctx := context.Background()
	log := logger.New("error", "text")

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Driver: database.DriverSQLite,
		URL:    "file::memory:",
	}, log)
	require.NoError(t, err)
	require.NoError(t, pool.Migrate(ctx))
	store := repository.NewSQLStore(pool.GetDB(), repository.DialectSQLite, log)

	noon := launchDay.Time().Add(12 * time.Hour)
	cal := service.Calendar{Location: time.UTC, Now: func() time.Time { return noon }}
	authSvc := service.NewAuthService(store, auth.NewTokenManager("integration", "voteapi", time.Minute, time.Hour), log)
	_, err = authSvc.CreateSuperuser(ctx, "admin", "admin@example.com", "adminpass")
	require.NoError(t, err)

	limiter := ratelimit.NewLimiter(1000, time.Minute)
	server := httptest.NewServer(handler.NewRouter(handler.Dependencies{
		Auth:        authSvc,
		Employees:   service.NewEmployeeService(store, log),
		Restaurants: service.NewRestaurantService(store, time.Minute, log),
		Menus:       service.NewMenuService(store, cal, log),
		Votes:       service.NewVoteService(store, cal, log),
		Limiter:     limiter,
		Health:      handler.NewHealthHandler(store, nil, log),
		Logger:      log,
	}))

	h := &TestServerHelper{Server: server, Logger: log, Store: store, t: t}
	t.Cleanup(func() {
		server.Close()
		limiter.Stop()
		pool.Close()
	})
	return h
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Do sends body as JSON with an optional bearer token and returns the response
// with its body read.
func (h *TestServerHelper) Do(method, path, token string, body any) (*http.Response, []byte) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.URL()+path, reader)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.Server.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, data
}

// Login returns an access token for the given credentials.
func (h *TestServerHelper) Login(username, password string) string {
	h.t.Helper()
	resp, body := h.Do(http.MethodPost, "/token/", "", map[string]string{"username": username, "password": password})
	AssertStatusCode(h.t, resp, http.StatusOK)
	var pair auth.Pair
	require.NoError(h.t, json.Unmarshal(body, &pair))
	return pair.Access
}

// CreateID posts body and returns the id stored under key in the 201 answer.
func (h *TestServerHelper) CreateID(path, token, key string, body any) int64 {
	h.t.Helper()
	resp, data := h.Do(http.MethodPost, path, token, body)
	require.Equal(h.t, http.StatusCreated, resp.StatusCode, string(data))
	var out map[string]int64
	require.NoError(h.t, json.Unmarshal(data, &out))
	return out[key]
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType helper function
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); ct != expected {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}
