package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vbonduro/mensabot/internal/bot"
	"github.com/vbonduro/mensabot/internal/domain"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type statusResponse struct {
	InstagramLoggedIn bool       `json:"instagram_logged_in"`
	TelegramRunning   bool       `json:"telegram_running"`
	Cafeterias        int        `json:"cafeterias"`
	ActiveMenus       int        `json:"active_menus"`
	LastFetch         *time.Time `json:"last_fetch,omitempty"`
	RunID             string     `json:"run_id,omitempty"`
	UpdatesEnabled    bool       `json:"updates_enabled"`
	DemoMode          bool       `json:"demo_mode"`
}

type cafeteriaResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type menuResponse struct {
	Cafeteria string `json:"cafeteria"`
	Meal      string `json:"meal"`
	Menu      string `json:"menu"`
	Available bool   `json:"available"`
}

type tableResponse struct {
	RunID       string           `json:"run_id,omitempty"`
	FetchedAt   *time.Time       `json:"fetched_at,omitempty"`
	ActiveMenus int              `json:"active_menus"`
	Menus       domain.MenuTable `json:"menus"`
}

type historyEntry struct {
	RunID       string    `json:"run_id"`
	FetchedAt   time.Time `json:"fetched_at"`
	ActiveMenus int       `json:"active_menus"`
	Extracted   bool      `json:"extracted"`
	Degraded    bool      `json:"degraded"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	at, runID := s.menus.LastFetch()
	resp := statusResponse{
		InstagramLoggedIn: s.login != nil && s.login.LoggedIn(),
		TelegramRunning:   s.state.TelegramRunning(),
		Cafeterias:        len(domain.Cafeterias()),
		ActiveMenus:       s.menus.ActiveMenus(),
		RunID:             runID,
		UpdatesEnabled:    s.state.UpdatesEnabled(),
		DemoMode:          s.state.DemoMode(),
	}
	if !at.IsZero() {
		resp.LastFetch = &at
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCafeterias(w http.ResponseWriter, r *http.Request) {
	cafes := domain.Cafeterias()
	resp := make([]cafeteriaResponse, 0, len(cafes))
	for _, c := range cafes {
		resp = append(resp, cafeteriaResponse{Name: string(c), DisplayName: c.DisplayName()})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleMenus returns the current table, fetching it first if nothing has
// been loaded yet.
func (s *Server) handleMenus(w http.ResponseWriter, r *http.Request) {
	table := s.menus.Snapshot()
	if table == nil {
		table = s.menus.FetchDailyMenus(r.Context())
	}
	s.writeJSON(w, http.StatusOK, s.tableResponse(table))
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	cafe, ok := domain.ResolveCafeteria(r.PathValue("cafeteria"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown cafeteria")
		return
	}
	meal, ok := domain.ParseMealType(r.PathValue("meal"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "meal must be pranzo or cena")
		return
	}

	text := s.menus.GetMenu(r.Context(), string(cafe), meal)
	s.writeJSON(w, http.StatusOK, menuResponse{
		Cafeteria: string(cafe),
		Meal:      string(meal),
		Menu:      text,
		Available: bot.MenuAvailable(text),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	table := s.menus.FetchDailyMenus(r.Context())
	s.logger.Info("menus refreshed over http", "active_menus", table.ActiveMenus())
	s.writeJSON(w, http.StatusOK, s.tableResponse(table))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := uint64(defaultHistoryLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	snaps, err := s.menus.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list snapshots", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	resp := make([]historyEntry, 0, len(snaps))
	for _, snap := range snaps {
		resp = append(resp, historyEntry{
			RunID:       snap.RunID,
			FetchedAt:   snap.FetchedAt,
			ActiveMenus: snap.Menus.ActiveMenus(),
			Extracted:   snap.Menus.HasExtracted(),
			Degraded:    snap.Degraded,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) tableResponse(table domain.MenuTable) tableResponse {
	at, runID := s.menus.LastFetch()
	resp := tableResponse{RunID: runID, ActiveMenus: table.ActiveMenus(), Menus: table}
	if !at.IsZero() {
		resp.FetchedAt = &at
	}
	return resp
}
