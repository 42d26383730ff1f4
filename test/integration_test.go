package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elebur/VoteAPI/internal/domain"
)

// TestHealthEndpoint verifies health check endpoint
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp, body := server.Do(http.MethodGet, "/healthz", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	AssertContentType(t, resp, "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

// TestReadinessEndpoint verifies the database is probed
func TestReadinessEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp, body := server.Do(http.MethodGet, "/readyz", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	assert.JSONEq(t, `{"status":"ready","checks":{"database":"ok","redis":"not configured"}}`, string(body))
}

// TestMetricsEndpoint verifies Prometheus metrics endpoint
func TestMetricsEndpoint(t *testing.T) {
	server := NewTestServer(t)
	server.Do(http.MethodGet, "/vote/results/", "", nil)

	resp, body := server.Do(http.MethodGet, "/metrics", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	assert.Contains(t, string(body), `voteapi_http_requests_total{method="GET",route="GET /vote/results/{$}",status="200"}`)
}

// TestRequestIDEchoed verifies every answer carries a request id
func TestRequestIDEchoed(t *testing.T) {
	server := NewTestServer(t)
	resp, _ := server.Do(http.MethodGet, "/menu/", "", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

// TestMenuAndVotingFlow walks a lunch day through the sqlite backend.
func TestMenuAndVotingFlow(t *testing.T) {
	server := NewTestServer(t)
	admin := server.Login("admin", "adminpass")

	employee := func(name string) string {
		server.CreateID("/employee/", admin, "employee_id", map[string]string{
			"username": name, "password": "pw", "email": name + "@mail.com",
			"first_name": "First", "last_name": name,
		})
		return server.Login(name, "pw")
	}
	alice, bob := employee("alice"), employee("bob")

	restaurant := server.CreateID("/restaurant/", admin, "restaurant_id", map[string]string{
		"name": "Canteen", "username": "canteen", "password": "pw", "email": "c@mail.com",
	})

	menu := func(token, title string, day domain.Date, items ...map[string]string) int64 {
		return server.CreateID("/menu/", token, "menu_id", map[string]any{
			"restaurant": restaurant, "title": title, "launch_date": day.String(), "items": items,
		})
	}
	item := func(title, desc string) map[string]string {
		return map[string]string{"title": title, "description": desc}
	}

	lunch := menu(alice, "Lunch", launchDay, item("Pasta", "A"), item("Soup", "hot"), item("Pasta", "B"))
	dinner := menu(bob, "Dinner", launchDay, item("Pasta", "C"))

	resp, body := server.Do(http.MethodGet, fmt.Sprintf("/menu/%d/", lunch), "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var got struct {
		Items []struct {
			ID          int64  `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Items, 2, "repeated titles collapse")
	assert.Equal(t, "Pasta", got.Items[0].Title)
	assert.Equal(t, "C", got.Items[0].Description, "later menus overwrite the shared description")

	// A failing request writes nothing.
	resp, _ = server.Do(http.MethodPost, "/menu/", alice, map[string]any{
		"restaurant": restaurant, "launch_date": launchDay.String(),
		"items": []map[string]string{item("Pasta", "D"), {"title": "Cake"}},
	})
	AssertStatusCode(t, resp, http.StatusBadRequest)
	resp, body = server.Do(http.MethodGet, fmt.Sprintf("/menu/%d/", dinner), "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	assert.Contains(t, string(body), `"description":"C"`)

	resp, _ = server.Do(http.MethodPost, fmt.Sprintf("/menu/%d/vote/", lunch), alice, map[string]any{"like": true})
	AssertStatusCode(t, resp, http.StatusOK)
	resp, _ = server.Do(http.MethodPost, fmt.Sprintf("/menu/%d/vote/", lunch), bob, map[string]any{"like": "no"})
	AssertStatusCode(t, resp, http.StatusOK)
	resp, body = server.Do(http.MethodPost, fmt.Sprintf("/menu/%d/vote/", lunch), bob, map[string]any{"like": true})
	AssertStatusCode(t, resp, http.StatusBadRequest)
	assert.JSONEq(t, `{"details":"You've already disliked this menu 'Lunch'."}`, string(body))

	resp, body = server.Do(http.MethodGet, "/vote/results/", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	assert.JSONEq(t, fmt.Sprintf(`[
		{"menu_id":%d,"likes":1,"dislikes":1,"result":0},
		{"menu_id":%d,"likes":0,"dislikes":0,"result":0}
	]`, lunch, dinner), string(body))

	resp, body = server.Do(http.MethodGet, "/menu/"+launchDay.AddDays(1).String()+"/", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

// TestConcurrentVotesOverHTTP fires the same vote many times; exactly one lands.
func TestConcurrentVotesOverHTTP(t *testing.T) {
	server := NewTestServer(t)
	admin := server.Login("admin", "adminpass")
	server.CreateID("/employee/", admin, "employee_id", map[string]string{
		"username": "racer", "password": "pw", "email": "r@mail.com", "first_name": "R", "last_name": "Acer",
	})
	racer := server.Login("racer", "pw")
	restaurant := server.CreateID("/restaurant/", admin, "restaurant_id", map[string]string{
		"name": "Fast", "username": "fast", "password": "pw", "email": "f@mail.com",
	})
	menu := server.CreateID("/menu/", racer, "menu_id", map[string]any{
		"restaurant": restaurant, "launch_date": launchDay.String(),
		"items": []map[string]string{{"title": "Fries", "description": "salty"}},
	})

	const attempts = 10
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(like bool) {
			defer wg.Done()
			resp, _ := server.Do(http.MethodPost, fmt.Sprintf("/menu/%d/vote/", menu), racer, map[string]any{"like": like})
			mu.Lock()
			codes[resp.StatusCode]++
			mu.Unlock()
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, map[int]int{http.StatusOK: 1, http.StatusBadRequest: attempts - 1}, codes)
}
