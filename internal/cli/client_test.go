package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/handler"
	"github.com/elebur/VoteAPI/internal/repository/memstore"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/service"
)

func newAPIServer(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	noon := domain.NewDate(2025, 5, 20).Time().Add(12 * time.Hour)
	cal := service.Calendar{Location: time.UTC, Now: func() time.Time { return noon }}
	authSvc := service.NewAuthService(store, auth.NewTokenManager("cli-test", "voteapi", time.Minute, time.Hour), logger)

	_, err := authSvc.CreateSuperuser(context.Background(), "admin", "admin@example.com", "adminpass")
	require.NoError(t, err)

	srv := httptest.NewServer(handler.NewRouter(handler.Dependencies{
		Auth:        authSvc,
		Employees:   service.NewEmployeeService(store, logger),
		Restaurants: service.NewRestaurantService(store, 0, logger),
		Menus:       service.NewMenuService(store, cal, logger),
		Votes:       service.NewVoteService(store, cal, logger),
		Logger:      logger,
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestEndToEnd(t *testing.T) {
	api := newAPIServer(t)
	adminToken := filepath.Join(t.TempDir(), "admin")
	cookToken := filepath.Join(t.TempDir(), "cook")

	out, err := run(t, api, adminToken, "login", "--username", "admin", "--password", "adminpass")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as admin")

	out, err = run(t, api, adminToken, "employee", "create",
		"--username", "cook", "--password", "secret", "--email", "cook@mail.com",
		"--first-name", "Ann", "--last-name", "Cook")
	require.NoError(t, err)
	assert.Contains(t, out, "employee")

	out, err = run(t, api, adminToken, "restaurant", "create",
		"--name", "Bistro", "--username", "bistro", "--password", "secret", "--email", "b@mail.com")
	require.NoError(t, err)
	var rid int64
	_, err = fmt.Sscanf(out, "✓ restaurant %d created", &rid)
	require.NoError(t, err)
	restaurantID := itoa(rid)

	_, err = run(t, api, cookToken, "login", "--username", "cook", "--password", "secret")
	require.NoError(t, err)

	out, err = run(t, api, cookToken, "--format", "json", "restaurant", "get", restaurantID)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Bistro"`)

	out, err = run(t, api, cookToken, "menu", "create",
		"--restaurant", restaurantID, "--title", "Monday", "--date", "2025-05-20",
		"--item", "Pasta=al dente", "--item", "Soup=hot")
	require.NoError(t, err)
	assert.Contains(t, out, "menu")

	out, err = run(t, api, cookToken, "--format", "json", "menu", "today")
	require.NoError(t, err)
	var menus []menuView
	require.NoError(t, json.Unmarshal([]byte(out), &menus))
	require.Len(t, menus, 1)
	assert.Equal(t, "Monday", deref(menus[0].Title))
	require.Len(t, menus[0].Items, 2)

	out, err = run(t, api, cookToken, "vote", "cast", itoa(menus[0].ID), "--dislike")
	require.NoError(t, err)
	assert.Contains(t, out, "disliked")

	_, err = run(t, api, cookToken, "vote", "cast", itoa(menus[0].ID))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Body, "You've already disliked this menu 'Monday'.")

	out, err = run(t, api, cookToken, "vote", "results")
	require.NoError(t, err)
	assert.Contains(t, out, "DISLIKES")
	assert.Regexp(t, itoa(menus[0].ID)+`\s+0\s+1\s+-1`, out)

	_, err = run(t, api, cookToken, "employee", "get", "1")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	out, err = run(t, api, cookToken, "logout")
	require.NoError(t, err)
	_, err = run(t, api, cookToken, "menu", "create", "--restaurant", restaurantID, "--date", "2025-05-20", "--item", "A=b")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestClientRefreshesExpiredAccess(t *testing.T) {
	var sawRetry bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/token/refresh/":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "refresh-1", body["refresh"])
			_, _ = io.WriteString(w, `{"access":"access-2"}`)
		case r.Header.Get("Authorization") == "Bearer access-2":
			sawRetry = true
			_, _ = io.WriteString(w, `[]`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Token is invalid or expired","code":"token_not_valid"}`)
		}
	}))
	defer srv.Close()

	tokens := newTokenStore(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, tokens.Save(Tokens{Access: "access-1", Refresh: "refresh-1"}))

	var out []tallyView
	require.NoError(t, NewClient(srv.URL, tokens).Do(context.Background(), http.MethodGet, "/vote/results/", nil, &out))
	assert.True(t, sawRetry)

	saved, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-2", saved.Access)
	assert.Equal(t, "refresh-1", saved.Refresh)
}

func TestTokenStoreMissingFile(t *testing.T) {
	s := newTokenStore(filepath.Join(t.TempDir(), "nested", "token"))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got.Access)
	require.NoError(t, s.Clear())
	require.NoError(t, s.Save(Tokens{Access: "a"}))
	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", got.Access)
}
