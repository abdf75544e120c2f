package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
	"github.com/ChamsBouzaiene/easywatch/internal/observability"
	"github.com/ChamsBouzaiene/easywatch/internal/session"
)

// TurnRunner runs one conversational turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, in engine.TurnInput) (*engine.TurnOutput, error)
}

type Server struct {
	turns TurnRunner
	store session.Store
	now   func() time.Time
}

func NewServer(turns TurnRunner, store session.Store) http.Handler {
	s := &Server{turns: turns, store: store, now: time.Now}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleMessages)
	mux.HandleFunc("POST /api/collections", s.handleCreateCollection)
	mux.HandleFunc("GET /api/collections", s.handleListCollections)

	return chainMiddlewares(mux, withPrincipal, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type chatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
	Tag       string `json:"tag,omitempty"`
}

type createCollectionRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Youtube Assistant API"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		badRequest(w, "prompt is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx := observability.WithSessionID(r.Context(), req.SessionID)
	out, err := s.turns.RunTurn(ctx, engine.TurnInput{
		SessionID: req.SessionID,
		OwnerID:   Principal(ctx),
		Tag:       req.Tag,
		Query:     req.Prompt,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context(), Principal(r.Context()))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var tag *string
	if r.URL.Query().Has("tag") {
		t := r.URL.Query().Get("tag")
		tag = &t
	}

	msgs, err := session.History(r.Context(), s.store, id, Principal(r.Context()), tag)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{Role: string(m.Role), Content: m.Content, Timestamp: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": out})
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(w, "name is required")
		return
	}

	c := &session.Collection{
		ID:        uuid.NewString(),
		OwnerID:   Principal(r.Context()),
		Name:      strings.TrimSpace(req.Name),
		Color:     req.Color,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateCollection(r.Context(), c); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.store.ListCollections(r.Context(), Principal(r.Context()))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if cols == nil {
		cols = []*session.Collection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": cols})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

// writeError maps domain errors to status codes. Internal details are logged,
// never returned.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrAccessDenied), errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": session.ErrAccessDenied.Error(),
		})
	case errors.Is(err, engine.ErrUpstreamTimeout):
		observability.LoggerFromContext(ctx).Error("upstream timeout", "error", err)
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{
			"error": "upstream timeout",
		})
	default:
		observability.LoggerFromContext(ctx).Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}
