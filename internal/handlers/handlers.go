package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tht-tools/team-balancer/internal/auth"
	"github.com/tht-tools/team-balancer/internal/charts"
	"github.com/tht-tools/team-balancer/internal/engine"
	"github.com/tht-tools/team-balancer/internal/logger"
	"github.com/tht-tools/team-balancer/internal/models"
	"github.com/tht-tools/team-balancer/internal/pubsub"
	"github.com/tht-tools/team-balancer/internal/resolution"
	"github.com/tht-tools/team-balancer/internal/stats"
	"github.com/tht-tools/team-balancer/internal/store"
)

// sessionCookie identifies a dashboard session for resolution scoping. It is
// separate from the auth session so resolutions survive a re-login.
const sessionCookie = "balancer_session"

// APIHandlers contains all API handler methods.
type APIHandlers struct {
	stats    *stats.Store
	engine   *engine.Engine
	sessions *resolution.Registry
	boards   store.BoardStore
	pubsub   *pubsub.PubSub
	charts   *charts.Renderer
	games    []models.Game
	teams    []string
	reload   func() error
}

// NewAPIHandlers creates a new API handlers instance. reload re-reads the
// stats source and may be nil when no reload path is configured.
func NewAPIHandlers(
	st *stats.Store,
	eng *engine.Engine,
	sessions *resolution.Registry,
	boards store.BoardStore,
	ps *pubsub.PubSub,
	renderer *charts.Renderer,
	games []models.Game,
	teams []string,
	reload func() error,
) *APIHandlers {
	return &APIHandlers{
		stats:    st,
		engine:   eng,
		sessions: sessions,
		boards:   boards,
		pubsub:   ps,
		charts:   renderer,
		games:    games,
		teams:    teams,
		reload:   reload,
	}
}

// session returns the resolution store for this browser, minting the session
// cookie on first contact.
func (h *APIHandlers) session(w http.ResponseWriter, r *http.Request) *resolution.Store {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return h.sessions.Get(cookie.Value)
	}

	b := make([]byte, 16)
	rand.Read(b)
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return h.sessions.Get(token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type resolutionsPayload struct {
	Substitutions map[string]string `json:"substitutions"`
	Ignored       []string          `json:"ignored"`
}

type recalcRequest struct {
	Teams       map[string][]string `json:"teams"`
	Resolutions *resolutionsPayload `json:"resolutions,omitempty"`
}

// Recalc recomputes averages and differentials for the posted roster. When
// players cannot be scored the response carries the full missing set and the
// candidate names the dialog offers as substitutes.
func (h *APIHandlers) Recalc(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req recalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("failed to decode recalc request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.session(w, r)
	if req.Resolutions != nil {
		for player, replacement := range req.Resolutions.Substitutions {
			res.SetSubstitution(player, replacement)
		}
		for _, player := range req.Resolutions.Ignored {
			res.SetIgnored(player)
		}
	}

	roster := normalizeRoster(req.Teams, h.teams)
	table := h.stats.Table()

	result := h.engine.Recompute(table, roster, res)
	if result.Unresolved() {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":         false,
			"missing":    result.Missing,
			"candidates": table.Players(),
		})
		return
	}

	perGameImg, err := h.charts.PerGameGrid(result.Averages)
	if err != nil {
		logger.Error("failed to render per-game chart", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	diffImg, err := h.charts.DifferentialGrid(result.Diffs)
	if err != nil {
		logger.Error("failed to render differential chart", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"averages":      result.Averages,
		"differentials": result.Diffs,
		"perGameImg":    perGameImg,
		"diffImg":       diffImg,
		"lastUpdated":   h.stats.LastUpdated().Format(time.RFC3339),
	})
}

// Players returns every player known to the stats table, the pool the
// dashboard offers for drag and drop.
func (h *APIHandlers) Players(w http.ResponseWriter, r *http.Request) {
	table := h.stats.Table()
	writeJSON(w, http.StatusOK, map[string]any{
		"players":     table.Players(),
		"lastUpdated": h.stats.LastUpdated().Format(time.RFC3339),
	})
}

// Games returns the enabled game configuration and the fixed team order, so
// the frontend never hardcodes either.
func (h *APIHandlers) Games(w http.ResponseWriter, r *http.Request) {
	type gameInfo struct {
		Key        string `json:"key"`
		Name       string `json:"name"`
		ShortLabel string `json:"shortLabel"`
		Overall    bool   `json:"overall"`
	}

	games := make([]gameInfo, 0, len(h.games))
	for _, g := range h.games {
		if !g.Enabled {
			continue
		}
		games = append(games, gameInfo{
			Key:        g.Key,
			Name:       g.Name,
			ShortLabel: g.ShortLabel,
			Overall:    g.IsOverall(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"games": games,
		"teams": h.teams,
	})
}

// Resolutions returns the session's current substitutions and ignores.
func (h *APIHandlers) Resolutions(w http.ResponseWriter, r *http.Request) {
	res := h.session(w, r)
	writeJSON(w, http.StatusOK, resolutionsPayload{
		Substitutions: res.Substitutions(),
		Ignored:       res.Ignored(),
	})
}

// Substitute records a replacement for a missing player. A blank replacement
// ignores the player instead.
func (h *APIHandlers) Substitute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Player      string `json:"player"`
		Replacement string `json:"replacement"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Player == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}

	res := h.session(w, r)
	res.SetSubstitution(req.Player, req.Replacement)

	h.pubsub.Publish(pubsub.Event{
		Type:    pubsub.EventResolutionsChanged,
		Payload: map[string]any{"player": req.Player},
	})

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Ignore excludes a player from all computations for this session.
func (h *APIHandlers) Ignore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Player string `json:"player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Player == "" {
		http.Error(w, "player is required", http.StatusBadRequest)
		return
	}

	res := h.session(w, r)
	res.SetIgnored(req.Player)

	h.pubsub.Publish(pubsub.Event{
		Type:    pubsub.EventResolutionsChanged,
		Payload: map[string]any{"player": req.Player},
	})

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ClearResolution removes any substitution or ignore for a player.
func (h *APIHandlers) ClearResolution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Player string `json:"player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.session(w, r)
	res.Clear(req.Player)

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListBoards returns all saved boards, newest first.
func (h *APIHandlers) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.boards.List()
	if err != nil {
		logger.Error("failed to list boards", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

// GetBoard returns one saved board by id.
func (h *APIHandlers) GetBoard(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	board, err := h.boards.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Board not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// SaveBoard persists the posted roster along with the session's resolution
// snapshot, so loading the board later restores both.
func (h *APIHandlers) SaveBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name  string              `json:"name"`
		Teams map[string][]string `json:"teams"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	res := h.session(w, r)
	board := &models.Board{
		Name:          req.Name,
		Roster:        normalizeRoster(req.Teams, h.teams),
		Substitutions: res.Substitutions(),
		Ignored:       res.Ignored(),
	}

	saved, err := h.boards.Save(board)
	if err != nil {
		logger.Error("failed to save board", "error", err, "name", req.Name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.pubsub.Publish(pubsub.Event{
		Type:    pubsub.EventBoardSaved,
		Payload: map[string]any{"id": saved.ID, "name": saved.Name},
	})

	writeJSON(w, http.StatusOK, saved)
}

// DeleteBoard removes a saved board.
func (h *APIHandlers) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.boards.Delete(req.ID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Board not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.pubsub.Publish(pubsub.Event{
		Type:    pubsub.EventBoardDeleted,
		Payload: map[string]any{"id": req.ID},
	})

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ReloadStats re-reads the stats source. Admin only.
func (h *APIHandlers) ReloadStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := auth.GetUser(r)
	if !auth.IsAdmin(user) {
		http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
		return
	}

	if h.reload == nil {
		http.Error(w, "Reload not configured", http.StatusNotImplemented)
		return
	}

	if err := h.reload(); err != nil {
		logger.Error("failed to reload stats", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.pubsub.Publish(pubsub.Event{
		Type:    pubsub.EventStatsUpdated,
		Payload: map[string]any{"source": "reload"},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"lastUpdated": h.stats.LastUpdated().Format(time.RFC3339),
	})
}

// EventsSSE streams dashboard events to the browser over Server-Sent Events.
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	eventChan := h.pubsub.Subscribe()
	defer h.pubsub.Unsubscribe(eventChan)

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	for {
		select {
		case event := <-eventChan:
			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "data: %s\n\n", data)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-time.After(30 * time.Second):
			fmt.Fprintf(w, ": keepalive\n\n")
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}
