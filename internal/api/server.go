// Package api serves a campaign map over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token and drive the campaign forward.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/campaign-map/internal/persistence"
	"github.com/talgya/campaign-map/internal/world"
)

const maxProgressRounds = 100

// Server serves one campaign map. Every handler takes mu before touching the
// map, so requests apply in arrival order.
type Server struct {
	Map        *world.Map
	DB         *persistence.DB // nil disables snapshots
	Port       int
	AdminKey   string // Bearer token for POST endpoints. Empty = POST disabled.
	CampaignID string // Save slot for snapshots; allocated on first snapshot if empty.

	mu sync.Mutex
}

// Handler returns the API routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	controlLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/location/", s.handleLocation)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/select", RateLimitMiddleware(controlLimiter, s.adminOnly(s.handleSelect)))
	mux.HandleFunc("/api/v1/move", RateLimitMiddleware(controlLimiter, s.adminOnly(s.handleMove)))
	mux.HandleFunc("/api/v1/progress", RateLimitMiddleware(controlLimiter, s.adminOnly(s.handleProgress)))
	mux.HandleFunc("/api/v1/snapshot", RateLimitMiddleware(controlLimiter, s.adminOnly(s.handleSnapshot)))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "snapshots", s.DB != nil)

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly rejects anything but an authorized POST.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no MAPGEN_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type locationView struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Zone        int     `json:"zone"`
	Type        string  `json:"type"`
	Discovered  bool    `json:"discovered"`
	Connections []int   `json:"connections"`
}

type connectionView struct {
	Index             int     `json:"index"`
	From              int     `json:"from"`
	To                int     `json:"to"`
	Difficulty        float64 `json:"difficulty"`
	Biome             string  `json:"biome"`
	Passed            bool    `json:"passed"`
	MissionsCompleted int     `json:"missions_completed"`
	LevelSeed         string  `json:"level_seed,omitempty"`
}

func (s *Server) viewLocation(l *world.Location) locationView {
	v := locationView{
		Index:       s.Map.LocationIndex(l),
		Name:        l.Name,
		X:           l.Position.X,
		Y:           l.Position.Y,
		Zone:        l.Zone,
		Type:        l.TypeName(),
		Discovered:  l.Discovered,
		Connections: make([]int, 0, len(l.Connections)),
	}
	for _, c := range l.Connections {
		v.Connections = append(v.Connections, s.Map.ConnectionIndex(c))
	}
	return v
}

func (s *Server) viewConnection(c *world.Connection) connectionView {
	v := connectionView{
		Index:             s.Map.ConnectionIndex(c),
		From:              s.Map.LocationIndex(c.Locations[0]),
		To:                s.Map.LocationIndex(c.Locations[1]),
		Difficulty:        c.Difficulty,
		Biome:             c.BiomeName(),
		Passed:            c.Passed,
		MissionsCompleted: c.MissionsCompleted,
	}
	if c.Level != nil {
		v.LevelSeed = c.Level.Seed()
	}
	return v
}

// selectionView reports the selected location and connection indices, -1 when unset.
func (s *Server) selectionView() map[string]int {
	return map[string]int{
		"location":   s.Map.LocationIndex(s.Map.SelectedLocation()),
		"connection": s.Map.ConnectionIndex(s.Map.SelectedConnection()),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	discovered, passed := 0, 0
	for _, l := range s.Map.Locations() {
		if l.Discovered {
			discovered++
		}
	}
	for _, c := range s.Map.Connections() {
		if c.Passed {
			passed++
		}
	}

	current := s.Map.CurrentLocation()
	writeJSON(w, map[string]any{
		"seed":             s.Map.Seed,
		"size":             s.Map.Config.Size,
		"locations":        len(s.Map.Locations()),
		"connections":      len(s.Map.Connections()),
		"discovered":       discovered,
		"passed":           passed,
		"current_location": s.Map.LocationIndex(current),
		"current_name":     current.Name,
		"selected":         s.selectionView(),
		"campaign_id":      s.CampaignID,
	})
}

// handleMap returns the whole graph for map renderers.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locations := make([]locationView, 0, len(s.Map.Locations()))
	for _, l := range s.Map.Locations() {
		locations = append(locations, s.viewLocation(l))
	}
	connections := make([]connectionView, 0, len(s.Map.Connections()))
	for _, c := range s.Map.Connections() {
		connections = append(connections, s.viewConnection(c))
	}

	writeJSON(w, map[string]any{
		"seed":             s.Map.Seed,
		"size":             s.Map.Config.Size,
		"current_location": s.Map.LocationIndex(s.Map.CurrentLocation()),
		"locations":        locations,
		"connections":      connections,
	})
}

// handleLocation returns one location with its incident connections (GET /api/v1/location/:index).
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/v1/location/"))
	if err != nil {
		http.Error(w, "invalid location index", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.Map.Location(idx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	connections := make([]connectionView, 0, len(l.Connections))
	for _, c := range l.Connections {
		connections = append(connections, s.viewConnection(c))
	}
	writeJSON(w, map[string]any{
		"location":    s.viewLocation(l),
		"connections": connections,
		"current":     l == s.Map.CurrentLocation(),
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index              *int `json:"index"`
		Random             bool `json:"random"`
		PreferUndiscovered bool `json:"prefer_undiscovered"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch {
	case req.Random:
		_, err = s.Map.SelectRandomLocation(req.PreferUndiscovered)
	case req.Index != nil:
		err = s.Map.SelectLocationIndex(*req.Index)
	default:
		http.Error(w, "index or random required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{"selected": s.selectionView()})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.Map.CurrentLocation()
	if err := s.Map.MoveToNextLocation(); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("moved", "from", prev.Name, "to", s.Map.CurrentLocation().Name)

	writeJSON(w, map[string]any{
		"previous": s.Map.LocationIndex(prev),
		"current":  s.viewLocation(s.Map.CurrentLocation()),
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rounds int `json:"rounds"`
	}
	// An empty body means one round, however it was framed.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Rounds == 0 {
		req.Rounds = 1
	}
	if req.Rounds < 0 || req.Rounds > maxProgressRounds {
		http.Error(w, fmt.Sprintf("rounds must be 1-%d", maxProgressRounds), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := make([]string, len(s.Map.Locations()))
	for i, l := range s.Map.Locations() {
		before[i] = l.TypeName()
	}
	for i := 0; i < req.Rounds; i++ {
		s.Map.ProgressWorld()
	}

	type change struct {
		Index int    `json:"index"`
		From  string `json:"from"`
		To    string `json:"to"`
	}
	changes := []change{}
	for i, l := range s.Map.Locations() {
		if l.TypeName() != before[i] {
			changes = append(changes, change{Index: i, From: before[i], To: l.TypeName()})
		}
	}

	writeJSON(w, map[string]any{
		"rounds":  req.Rounds,
		"round":   s.Map.Round(),
		"changes": changes,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.DB.SaveCampaign(s.CampaignID, s.Map.Save())
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	s.CampaignID = id
	if err := s.DB.SaveMeta(persistence.LastCampaignKey, id); err != nil {
		slog.Warn("record last campaign failed", "campaign", id, "error", err)
	}

	writeJSON(w, map[string]any{
		"campaign_id": id,
		"message":     "snapshot saved",
	})
}

// writeError maps map errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, world.ErrLocationIndexOutOfRange), errors.Is(err, world.ErrLocationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, world.ErrNoSelection):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
