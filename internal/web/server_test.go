package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mensabot/internal/domain"
	"github.com/vbonduro/mensabot/internal/web"
)

var longMenu = "*Menù Pranzo - Principe Amedeo*\n\nPrimi:\n- Pasta al pomodoro\n- Risotto"

type fakeMenus struct {
	mu       sync.Mutex
	table    domain.MenuTable
	fetches  int
	lastName string
	lastMeal domain.MealType
	history  []*domain.Snapshot
	histErr  error
	limit    uint64
}

func (f *fakeMenus) GetMenu(_ context.Context, name string, meal domain.MealType) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastName, f.lastMeal = name, meal
	c, _ := domain.ResolveCafeteria(name)
	text, ok := f.table.Get(c, meal)
	if !ok {
		return domain.MenuNotAvailable
	}
	return text
}

func (f *fakeMenus) FetchDailyMenus(context.Context) domain.MenuTable {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	f.table = domain.NewMenuTable(func(domain.Cafeteria, domain.MealType) string { return longMenu })
	return f.table.Clone()
}

func (f *fakeMenus) Snapshot() domain.MenuTable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.table == nil {
		return nil
	}
	return f.table.Clone()
}

func (f *fakeMenus) LastFetch() (time.Time, string) {
	return time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC), "run-1"
}

func (f *fakeMenus) ActiveMenus() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table.ActiveMenus()
}

func (f *fakeMenus) History(_ context.Context, limit uint64) ([]*domain.Snapshot, error) {
	f.limit = limit
	return f.history, f.histErr
}

type fakeLogin bool

func (f fakeLogin) LoggedIn() bool { return bool(f) }

type fakeState struct{}

func (fakeState) DemoMode() bool        { return true }
func (fakeState) UpdatesEnabled() bool  { return false }
func (fakeState) TelegramRunning() bool { return true }

func newTestServer(t *testing.T, menus *fakeMenus) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(web.NewServer(menus, fakeLogin(true), fakeState{}, logger))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, &fakeMenus{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mensabot is running", string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var health map[string]string
	resp = getJSON(t, srv.URL+"/healthz", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	menus := &fakeMenus{}
	menus.FetchDailyMenus(context.Background())
	srv := newTestServer(t, menus)

	var got map[string]any
	resp := getJSON(t, srv.URL+"/api/status", &got)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, true, got["instagram_logged_in"])
	assert.Equal(t, true, got["telegram_running"])
	assert.Equal(t, float64(4), got["cafeterias"])
	assert.Equal(t, float64(8), got["active_menus"])
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, false, got["updates_enabled"])
	assert.Equal(t, true, got["demo_mode"])
	assert.Equal(t, "2026-03-04T07:00:00Z", got["last_fetch"])
}

func TestCafeterias(t *testing.T) {
	srv := newTestServer(t, &fakeMenus{})

	var got []map[string]string
	getJSON(t, srv.URL+"/api/cafeterias", &got)
	require.Len(t, got, 4)
	assert.Equal(t, string(domain.Cafeterias()[0]), got[0]["name"])
	assert.NotEmpty(t, got[0]["display_name"])
}

func TestMenusFetchesWhenEmpty(t *testing.T) {
	menus := &fakeMenus{}
	srv := newTestServer(t, menus)

	var got struct {
		ActiveMenus int                                             `json:"active_menus"`
		Menus       map[domain.Cafeteria]map[domain.MealType]string `json:"menus"`
	}
	getJSON(t, srv.URL+"/api/menus", &got)
	assert.Equal(t, 1, menus.fetches)
	assert.Equal(t, 8, got.ActiveMenus)
	assert.Equal(t, longMenu, got.Menus[domain.PrincipeAmedeo][domain.Cena])

	getJSON(t, srv.URL+"/api/menus", &got)
	assert.Equal(t, 1, menus.fetches)
}

func TestMenuLookup(t *testing.T) {
	menus := &fakeMenus{}
	menus.FetchDailyMenus(context.Background())
	menus.table.Set(domain.Perrone, domain.Pranzo, domain.NotAvailable(domain.Pranzo))
	srv := newTestServer(t, menus)

	tests := []struct {
		name      string
		path      string
		status    int
		cafeteria domain.Cafeteria
		meal      domain.MealType
		available bool
	}{
		{"canonical", "/api/menus/Principe%20Amedeo/cena", http.StatusOK, domain.PrincipeAmedeo, domain.Cena, true},
		{"legacy name", "/api/menus/Sobrero/pranzo", http.StatusOK, domain.PaoloBorsellino, domain.Pranzo, true},
		{"unavailable", "/api/menus/Perrone/pranzo", http.StatusOK, domain.Perrone, domain.Pranzo, false},
		{"unknown cafeteria", "/api/menus/Nowhere/pranzo", http.StatusNotFound, "", "", false},
		{"bad meal", "/api/menus/Perrone/colazione", http.StatusBadRequest, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			resp := getJSON(t, srv.URL+tt.path, &got)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, got["error"])
				return
			}
			assert.Equal(t, string(tt.cafeteria), got["cafeteria"])
			assert.Equal(t, string(tt.meal), got["meal"])
			assert.Equal(t, tt.available, got["available"])
		})
	}
}

func TestRefresh(t *testing.T) {
	menus := &fakeMenus{}
	srv := newTestServer(t, menus)

	resp, err := http.Post(srv.URL+"/api/menus/refresh", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, menus.fetches)

	resp2, err := http.Get(srv.URL + "/api/menus/refresh")
	require.NoError(t, err)
	_ = resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestHistory(t *testing.T) {
	menus := &fakeMenus{history: []*domain.Snapshot{{
		RunID:     "abc",
		FetchedAt: time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC),
		Menus: domain.NewMenuTable(func(domain.Cafeteria, domain.MealType) string {
			return longMenu
		}),
	}}}
	srv := newTestServer(t, menus)

	var got []map[string]any
	getJSON(t, srv.URL+"/api/history?limit=500", &got)
	assert.Equal(t, uint64(100), menus.limit)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0]["run_id"])
	assert.Equal(t, float64(8), got[0]["active_menus"])
	assert.Equal(t, true, got[0]["extracted"])
	assert.Equal(t, false, got[0]["degraded"])

	resp := getJSON(t, srv.URL+"/api/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	menus.histErr = errors.New("db closed")
	resp = getJSON(t, srv.URL+"/api/history", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, uint64(10), menus.limit)
}
