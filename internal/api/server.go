// Package api provides the HTTP API for observing the world.
// GET endpoints are public (read-only observation, rate limited per client).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/homestead/internal/agents"
	"github.com/talgya/homestead/internal/engine"
	"github.com/talgya/homestead/internal/persistence"
)

const (
	maxStreamConns = 8
	catchUpEvents  = 50
)

// Server serves the world state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional event and stats archive
	SavePath string          // Snapshot written by POST /api/v1/save
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string // Bearer token for stream endpoints. Empty = open to all.

	// Requests per minute per client on GET endpoints. Zero disables limiting.
	ReadLimit int

	streamConns int32
	upgrader    websocket.Upgrader
	httpServer  *http.Server
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	read := func(h http.HandlerFunc) http.HandlerFunc { return h }
	if s.ReadLimit > 0 {
		rl := NewRateLimiter(s.ReadLimit, time.Minute)
		read = func(h http.HandlerFunc) http.HandlerFunc { return RateLimitMiddleware(rl, h) }
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", read(s.handleStatus))
	mux.HandleFunc("GET /api/v1/agents", read(s.handleAgents))
	mux.HandleFunc("GET /api/v1/agent/{id}", read(s.handleAgent))
	mux.HandleFunc("GET /api/v1/snapshot", read(s.handleSnapshot))
	mux.HandleFunc("GET /api/v1/events", read(s.handleEvents))
	mux.HandleFunc("GET /api/v1/events/archive", read(s.handleEventArchive))
	mux.HandleFunc("GET /api/v1/stats", read(s.handleStats))
	mux.HandleFunc("GET /api/v1/stats/history", read(s.handleStatsHistory))
	mux.HandleFunc("GET /api/v1/map", read(s.handleMap))

	// Live event streams.
	mux.HandleFunc("GET /api/v1/stream", s.relayOnly(s.handleStream))
	mux.HandleFunc("GET /api/v1/ws", s.relayOnly(s.handleWebsocket))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/save", s.adminOnly(s.handleSave))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for open ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
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

func bearerMatches(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !bearerMatches(r, s.AdminKey) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) relayOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.RelayKey != "" && !bearerMatches(r, s.RelayKey) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Stats()
	tick := s.Sim.CurrentTick()
	writeJSON(w, map[string]any{
		"name":          "Homestead",
		"world_id":      s.Sim.ID(),
		"tick":          tick,
		"sim_time":      engine.SimTime(tick),
		"season":        s.Sim.SeasonName(),
		"speed":         s.Eng.Speed(),
		"running":       s.Eng.Running(),
		"population":    len(s.Sim.Agents()),
		"births":        st.Births,
		"deaths":        st.Deaths,
		"discoveries":   st.Discoveries,
		"structures":    st.Structures,
		"known_recipes": st.KnownRecipes,
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	list := s.Sim.Agents()
	if list == nil {
		list = []engine.AgentSummary{}
	}
	writeJSON(w, list)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	detail, ok := s.Sim.Agent(agents.AgentID(id))
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	resp := map[string]any{"agent": detail}
	if s.DB != nil {
		history, err := s.DB.AgentEvents(id, 20)
		if err != nil {
			slog.Warn("agent history query failed", "agent", id, "error", err)
		}
		if history == nil {
			history = []engine.Event{}
		}
		resp["history"] = history
	}
	writeJSON(w, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var selected agents.AgentID
	if v := r.URL.Query().Get("selected"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid selected agent id", http.StatusBadRequest)
			return
		}
		selected = agents.AgentID(id)
	}
	writeJSON(w, s.Sim.Snapshot(selected))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, engine.MaxRecentEvents)
	category := r.URL.Query().Get("category")

	var events []engine.Event
	if category == "" {
		events = s.Sim.RecentEvents(limit)
	} else {
		// Filter the whole ring, then keep the newest matches.
		for _, e := range s.Sim.RecentEvents(0) {
			if e.Category == category {
				events = append(events, e)
			}
		}
		events = events[max(0, len(events)-limit):]
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleEventArchive(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	events, err := s.DB.RecentEvents(queryLimit(r, 100, 1000))
	if err != nil {
		slog.Error("event archive query failed", "error", err)
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Stats())
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	rows, err := s.DB.StatsHistory(queryLimit(r, 30, 1000))
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		// Return empty array instead of error; table may not have data yet.
		writeJSON(w, []engine.Stats{})
		return
	}
	if rows == nil {
		rows = []engine.Stats{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.MapView())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.SavePath == "" {
		http.Error(w, "no save path configured", http.StatusServiceUnavailable)
		return
	}
	if err := persistence.Save(s.SavePath, s.Sim); err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved": true, "tick": s.Sim.CurrentTick()})
}

// acquireStream reserves one of the stream slots.
func (s *Server) acquireStream(w http.ResponseWriter) bool {
	if atomic.AddInt32(&s.streamConns, 1) > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) releaseStream() { atomic.AddInt32(&s.streamConns, -1) }

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if !s.acquireStream(w) {
		return
	}
	defer s.releaseStream()

	ch, unsubscribe := s.Sim.Subscribe(256)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, e := range s.Sim.RecentEvents(catchUpEvents) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()
	slog.Info("SSE client connected", "remote", r.RemoteAddr)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream(w) {
		return
	}
	defer s.releaseStream()

	// Subscribe before the handshake completes so nothing recorded after
	// the client connects is missed.
	ch, unsubscribe := s.Sim.Subscribe(256)
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader loop: observers send nothing, but reading notices the close.
	go func() {
		defer cancel()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(e engine.Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(e) == nil
	}
	for _, e := range s.Sim.RecentEvents(catchUpEvents) {
		if !send(e) {
			return
		}
	}

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case e, ok := <-ch:
			if !ok || !send(e) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Category, data)
}

func queryLimit(r *http.Request, def, most int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= most {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
