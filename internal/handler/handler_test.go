package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/repository/memstore"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/service"
)

var testDay = domain.NewDate(2025, 5, 20)

type testAPI struct {
	t       *testing.T
	store   *memstore.Store
	handler http.Handler
	admin   string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	noon := testDay.Time().Add(12 * time.Hour)
	cal := service.Calendar{Location: time.UTC, Now: func() time.Time { return noon }}

	tokens := auth.NewTokenManager("handler-test-secret", "voteapi", 5*time.Minute, time.Hour)
	authSvc := service.NewAuthService(store, tokens, logger)
	votes := service.NewVoteService(store, cal, logger)

	api := &testAPI{
		t:     t,
		store: store,
		handler: NewRouter(Dependencies{
			Auth:        authSvc,
			Employees:   service.NewEmployeeService(store, logger),
			Restaurants: service.NewRestaurantService(store, time.Minute, logger),
			Menus:       service.NewMenuService(store, cal, logger),
			Votes:       votes,
			Health:      NewHealthHandler(store, nil, logger),
			Logger:      logger,
		}),
	}

	_, err := authSvc.CreateSuperuser(context.Background(), "admin", "admin@example.com", "adminpass")
	require.NoError(t, err)
	api.admin = api.login("admin", "adminpass")
	return api
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/token/", "", map[string]string{"username": username, "password": password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var pair auth.Pair
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair.Access
}

// newEmployee registers an employee through the API and returns its access token.
func (a *testAPI) newEmployee(username string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/employee/", a.admin, map[string]string{
		"username":   username,
		"password":   "password",
		"email":      username + "@mail.com",
		"first_name": "First",
		"last_name":  "Last",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login(username, "password")
}

func (a *testAPI) newRestaurant(name, username string) int64 {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/restaurant/", a.admin, map[string]string{
		"name":     name,
		"username": username,
		"password": "password",
		"email":    username + "@mail.com",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID int64 `json:"restaurant_id"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.ID
}

func (a *testAPI) newMenu(token string, restaurantID int64, title string, day domain.Date, items ...[2]string) int64 {
	a.t.Helper()
	payload := map[string]any{
		"restaurant":  restaurantID,
		"title":       title,
		"launch_date": day.String(),
		"items":       itemsPayload(items...),
	}
	rec := a.do(http.MethodPost, "/menu/", token, payload)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID int64 `json:"menu_id"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.ID
}

func itemsPayload(items ...[2]string) []map[string]string {
	out := make([]map[string]string, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]string{"title": it[0], "description": it[1]})
	}
	return out
}

func TestPermissionMatrix(t *testing.T) {
	api := newTestAPI(t)
	employee := api.newEmployee("matrix")
	restaurant := api.newRestaurant("Matrix Diner", "matrix_diner")
	menu := api.newMenu(api.admin, restaurant, "Lunch", testDay, [2]string{"Soup", "hot"})

	const (
		unauthorized = `{"detail":"Authentication credentials were not provided."}`
		forbidden    = `{"detail":"You do not have permission to perform this action."}`
	)

	tests := []struct {
		method, path string
		anonymous    int
		employee     int
	}{
		{http.MethodPost, "/employee/", http.StatusUnauthorized, http.StatusForbidden},
		{http.MethodGet, "/employee/1/", http.StatusUnauthorized, http.StatusForbidden},
		{http.MethodPost, "/restaurant/", http.StatusUnauthorized, http.StatusForbidden},
		{http.MethodGet, fmt.Sprintf("/restaurant/%d/", restaurant), http.StatusOK, http.StatusOK},
		{http.MethodPost, "/menu/", http.StatusUnauthorized, http.StatusBadRequest},
		{http.MethodGet, fmt.Sprintf("/menu/%d/", menu), http.StatusOK, http.StatusOK},
		{http.MethodGet, "/menu/2025-05-20/", http.StatusOK, http.StatusOK},
		{http.MethodPost, fmt.Sprintf("/menu/%d/vote/", menu), http.StatusUnauthorized, http.StatusBadRequest},
		{http.MethodGet, "/vote/results/", http.StatusOK, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, "", nil)
			assert.Equal(t, tt.anonymous, rec.Code, rec.Body.String())
			if tt.anonymous == http.StatusUnauthorized {
				assert.JSONEq(t, unauthorized, rec.Body.String())
			}

			rec = api.do(tt.method, tt.path, employee, nil)
			assert.Equal(t, tt.employee, rec.Code, rec.Body.String())
			if tt.employee == http.StatusForbidden {
				assert.JSONEq(t, forbidden, rec.Body.String())
			}
		})
	}
}

func TestEmployeeEndpoints(t *testing.T) {
	api := newTestAPI(t)
	payload := map[string]string{
		"username":   "john",
		"password":   "password",
		"email":      "john@mail.com",
		"first_name": "John",
		"last_name":  "Smith",
	}

	rec := api.do(http.MethodPost, "/employee/", api.admin, payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"employee_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = api.do(http.MethodPost, "/employee/", api.admin, payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":"The username 'john' is already in use"}`, rec.Body.String())

	delete(payload, "last_name")
	payload["username"] = "other"
	rec = api.do(http.MethodPost, "/employee/", api.admin, payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":{"last_name":["This field is required."]}}`, rec.Body.String())

	rec = api.do(http.MethodGet, fmt.Sprintf("/employee/%d/", created.ID), api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "John", got["first_name"])
	assert.Equal(t, "Smith", got["last_name"])
	assert.NotEmpty(t, got["date_joined"])
	assert.NotContains(t, got, "password")
	assert.NotContains(t, got, "username")

	rec = api.do(http.MethodGet, "/employee/999/", api.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"No Employee matches the given query."}`, rec.Body.String())
}

func TestRestaurantEndpoints(t *testing.T) {
	api := newTestAPI(t)
	first := api.newRestaurant("RESTaurant's name", "restaurant_user")
	second := api.newRestaurant("RESTaurant's name", "new_username")
	assert.NotEqual(t, first, second, "duplicate names are allowed")

	rec := api.do(http.MethodPost, "/restaurant/", api.admin, map[string]string{
		"name": "x", "username": "restaurant_user", "password": "p", "email": "r@mail.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":"The username 'restaurant_user' is already in use"}`, rec.Body.String())

	rec = api.do(http.MethodGet, fmt.Sprintf("/restaurant/%d/", first), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "RESTaurant's name", got["name"])
	assert.EqualValues(t, first, got["id"])

	rec = api.do(http.MethodGet, "/restaurant/0/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"No Restaurant matches the given query."}`, rec.Body.String())
}

func TestMenuEndpoints(t *testing.T) {
	api := newTestAPI(t)
	employee := api.newEmployee("cook")
	restaurant := api.newRestaurant("Bistro", "bistro")

	first := api.newMenu(employee, restaurant, "Monday", testDay, [2]string{"Pasta", "A"}, [2]string{"Soup", "Hot"})
	second := api.newMenu(employee, restaurant, "Tuesday", testDay.AddDays(1), [2]string{"Pasta", "B"})

	rec := api.do(http.MethodGet, fmt.Sprintf("/menu/%d/", first), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var menu MenuResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &menu))
	assert.Equal(t, first, menu.ID)
	assert.Equal(t, restaurant, menu.Restaurant)
	require.Len(t, menu.Items, 2)
	assert.Equal(t, "Pasta", menu.Items[0].Title)
	assert.Equal(t, "B", menu.Items[0].Description, "description overwrite reaches earlier menus")
	assert.True(t, menu.LaunchDate.Equal(testDay))
	assert.Nil(t, menu.Notes)

	keys := []string{}
	dec := json.NewDecoder(strings.NewReader(rec.Body.String()))
	_, _ = dec.Token()
	for dec.More() {
		tok, _ := dec.Token()
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		_ = dec.Decode(&skip)
	}
	assert.Equal(t, []string{"id", "items", "title", "notes", "launch_date", "date_created", "last_modified", "restaurant"}, keys)

	rec = api.do(http.MethodGet, "/menu/2025-05-21/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []MenuResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].ID)

	rec = api.do(http.MethodGet, "/menu/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, first, list[0].ID)

	rec = api.do(http.MethodGet, "/menu/1999-01-01/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = api.do(http.MethodGet, "/menu/9999-99-99/", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":"Invalid date - '9999-99-99'. Correct format is YYYY-MM-DD"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/menu/404/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"No Menu matches the given query."}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/menu/lunch/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMenuErrors(t *testing.T) {
	api := newTestAPI(t)
	employee := api.newEmployee("cook")
	restaurant := api.newRestaurant("Bistro", "bistro")

	rec := api.do(http.MethodPost, "/menu/", employee, map[string]any{
		"restaurant":  restaurant,
		"launch_date": testDay.String(),
		"items":       []any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":"'items' is the required parameter. It can't be null or an empty array"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/menu/", employee, map[string]any{
		"restaurant":  restaurant,
		"launch_date": testDay.String(),
		"items":       []any{map[string]string{"title": "Pasta", "description": "x"}, map[string]string{"title": "Soup"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":{"items":[{},{"description":["This field is required."]}]}}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/menu/", employee, map[string]any{
		"restaurant":  restaurant,
		"launch_date": testDay.String(),
		"items":       itemsPayload([2]string{"   ", " "}),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":{"items":[{"title":["This field may not be blank."],"description":["This field may not be blank."]}]}}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/menu/", employee, map[string]any{
		"restaurant":  9999,
		"launch_date": testDay.String(),
		"items":       itemsPayload([2]string{"Pasta", "x"}),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":{"restaurant":["Invalid pk \"9999\" - object does not exist."]}}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/menu/", employee, `{"restaurant": "one"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":{"restaurant":["A valid integer is required."]}}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/menu/", employee, `{"restaurant": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "JSON parse error")

	menus, err := api.store.Menus().ListByLaunchDate(context.Background(), testDay)
	require.NoError(t, err)
	assert.Empty(t, menus, "failed requests leave nothing behind")
}

func TestVoteEndpoints(t *testing.T) {
	api := newTestAPI(t)
	alice := api.newEmployee("alice")
	bob := api.newEmployee("bob")
	restaurant := api.newRestaurant("Grill", "grill")
	menu := api.newMenu(alice, restaurant, "Friday grill", testDay, [2]string{"Steak", "rare"})
	quiet := api.newMenu(alice, restaurant, "Salads", testDay, [2]string{"Salad", "green"})
	api.newMenu(alice, restaurant, "Later", testDay.AddDays(1), [2]string{"Steak", "rare"})
	votePath := fmt.Sprintf("/menu/%d/vote/", menu)

	rec := api.do(http.MethodPost, votePath, alice, map[string]any{"like": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.VoteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "liked", res.Action)
	assert.NotZero(t, res.VoteID)

	rec = api.do(http.MethodPost, votePath, alice, map[string]any{"like": false})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":"You've already liked this menu 'Friday grill'."}`, rec.Body.String())

	rec = api.do(http.MethodPost, votePath, bob, map[string]any{"like": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"details":{"like":["Must be a valid boolean."]}}`, rec.Body.String())

	rec = api.do(http.MethodPost, votePath, bob, map[string]any{"like": "false"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, votePath, api.admin, map[string]any{"like": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"details":"Employee not found"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/menu/999/vote/", bob, map[string]any{"like": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"No Menu matches the given query."}`, rec.Body.String())

	rec = api.do(http.MethodPost, votePath, api.admin, `{"like": `)
	assert.Equal(t, http.StatusNotFound, rec.Code, "missing employee wins over a broken body")
	assert.JSONEq(t, `{"details":"Employee not found"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/menu/999/vote/", bob, `{"like": `)
	assert.Equal(t, http.StatusNotFound, rec.Code, "missing menu wins over a broken body")
	assert.JSONEq(t, `{"detail":"No Menu matches the given query."}`, rec.Body.String())

	rec = api.do(http.MethodPost, fmt.Sprintf("/menu/%d/vote/", quiet), bob, `{"like": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "JSON parse error")

	rec = api.do(http.MethodGet, "/vote/results/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`[
		{"menu_id":%d,"likes":1,"dislikes":1,"result":0},
		{"menu_id":%d,"likes":0,"dislikes":0,"result":0}
	]`, menu, quiet), rec.Body.String())

	rec = api.do(http.MethodGet, "/vote/results/?date=2030-01-01", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = api.do(http.MethodGet, "/vote/results/?date=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokenEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/token/", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"No active account found with the given credentials"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/token/", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"password":["This field is required."]}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/token/", "", map[string]string{"username": "admin", "password": "adminpass"})
	require.Equal(t, http.StatusOK, rec.Code)
	var pair auth.Pair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))

	rec = api.do(http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed struct {
		Access string `json:"access"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.Access)

	rec = api.do(http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": pair.Access})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Token is invalid or expired","code":"token_not_valid"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/vote/results/", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Token is invalid or expired","code":"token_not_valid"}`, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Checks["database"])
	assert.Equal(t, "not configured", ready.Checks["redis"])

	rec = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voteapi_http_requests_total")
}
