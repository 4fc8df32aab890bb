package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"campaign_feed/internal/config"
	"campaign_feed/internal/domain"
	"campaign_feed/internal/feed"
	"campaign_feed/internal/game"
	sqlitestore "campaign_feed/internal/store/sqlite"
)

// ErrClockPaused rejects player posts while the tick clock is stopped.
var ErrClockPaused = errors.New("simulation clock is paused")

// Engine is the simulation surface the API drives.
type Engine interface {
	NewSession(player domain.Player, rival domain.Rival) error
	Reset()
	SubmitPlayerPost(content string, tags []string) (domain.Post, error)
	Status() game.Status
	State() *feed.State
}

type Clock interface {
	Pause()
	Resume()
	Paused() bool
}

type Store interface {
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) error
	ClearSnapshots(ctx context.Context) error
	ListGenerations(ctx context.Context, limit int) ([]domain.GenerationRecord, error)
	GenerationStats(ctx context.Context) ([]sqlitestore.GenerationStats, error)
}

// Stream hands out per-client feed event channels.
type Stream interface {
	Subscribe(id string) <-chan domain.FeedEvent
	Unsubscribe(id string)
	SendTo(id string, ev domain.FeedEvent) error
	Subscribers() int
}

type Server struct {
	cfg      config.Config
	engine   Engine
	clock    Clock
	store    Store
	stream   Stream
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, engine Engine, clock Clock, store Store, stream Stream, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:    cfg,
		engine: engine,
		clock:  clock,
		store:  store,
		stream: stream,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/feed", s.handleFeed)
	mux.HandleFunc("/posts", s.handlePosts)
	mux.HandleFunc("/personas", s.handlePersonas)
	mux.HandleFunc("/news", s.handleNews)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/pause", s.handlePause)
	mux.HandleFunc("/resume", s.handleResume)
	mux.HandleFunc("/session", s.handleSession)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/generations", s.handleGenerations)
	mux.HandleFunc("/generations/stats", s.handleGenerationStats)
	mux.HandleFunc("/ws", s.handleStream)
	return s.loggingMiddleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"path": s.cfg.Path,
		"raw":  s.cfg.Raw,
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.State().Posts(queryInt(r, "limit", 50)))
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if s.clock.Paused() {
		writeError(w, http.StatusConflict, ErrClockPaused)
		return
	}
	post, err := s.engine.SubmitPlayerPost(req.Content, req.IssueTags)
	switch {
	case errors.Is(err, game.ErrInvalidPost):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, game.ErrNotStarted), errors.Is(err, game.ErrFeedBusy):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusCreated, post)
	}
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.State().Personas())
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.State().News(queryInt(r, "limit", 20)))
}

type PostRequest struct {
	Content   string   `json:"content"`
	IssueTags []string `json:"issue_tags,omitempty"`
}

// SessionRequest overrides the configured player; zero fields keep it.
type SessionRequest struct {
	CandidateName     string   `json:"candidate_name,omitempty"`
	Party             string   `json:"party,omitempty"`
	PoliticalPosition *int     `json:"political_position,omitempty"`
	PriorityIssues    []string `json:"priority_issues,omitempty"`
}

type StatusResponse struct {
	game.Status
	Paused    bool           `json:"paused"`
	Watchers  int            `json:"watchers"`
	Player    *domain.Player `json:"player,omitempty"`
	Rival     *domain.Rival  `json:"rival,omitempty"`
	HotIssues []domain.Issue `json:"hot_issues"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	state := s.engine.State()
	resp := StatusResponse{
		Status:    s.engine.Status(),
		Paused:    s.clock.Paused(),
		Watchers:  s.stream.Subscribers(),
		HotIssues: state.HotIssues(),
	}
	if player, ok := state.Player(); ok {
		rival := state.Rival()
		resp.Player = &player
		resp.Rival = &rival
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.clock.Pause()
	writeJSON(w, http.StatusOK, map[string]any{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.clock.Resume()
	writeJSON(w, http.StatusOK, map[string]any{"status": "running"})
}

// handleSession starts a fresh campaign. An empty body uses the configured
// player; the rival is always derived from the player.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pc := s.cfg.Player
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if strings.TrimSpace(req.CandidateName) != "" {
		pc.CandidateName = req.CandidateName
	}
	if strings.TrimSpace(req.Party) != "" {
		pc.Party = req.Party
	}
	if req.PoliticalPosition != nil {
		pc.PoliticalPosition = *req.PoliticalPosition
	}
	if req.PriorityIssues != nil {
		pc.PriorityIssues = req.PriorityIssues
	}

	player := game.PlayerFrom(pc)
	if err := s.engine.NewSession(player, game.RivalFor(player, s.cfg.Rival)); err != nil {
		if errors.Is(err, game.ErrInvalidPlayer) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.engine.Status())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.engine.Reset()
	if err := s.store.ClearSnapshots(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	state := s.engine.State()
	if !state.Started() {
		writeError(w, http.StatusConflict, game.ErrNotStarted)
		return
	}
	snap := state.Snapshot()
	if err := s.store.SaveSnapshot(r.Context(), snap); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "saved",
		"tick":   snap.Loop.CurrentTick,
		"posts":  len(snap.Posts),
	})
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := s.store.ListGenerations(r.Context(), queryInt(r, "limit", 300))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGenerationStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.store.GenerationStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
