package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hautbar/barkeep/internal/vector"
)

// Responder answers a single chat query with sources.
type Responder interface {
	ProcessQuery(ctx context.Context, userID, query string) (string, []vector.Match)
}

// ChatMessage is a single chat turn: role is user, assistant or system.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	UserID   string        `json:"user_id"`
}

// ChatResponse carries the assistant turn plus the retrieval sources.
type ChatResponse struct {
	Message ChatMessage    `json:"message"`
	Sources []vector.Match `json:"sources"`
}

type Server struct {
	router    *chi.Mux
	srv       *http.Server
	responder Responder
	logger    *slog.Logger
}

func NewServer(port int, responder Responder, staticDir string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		responder: responder,
		logger:    logger,
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		},
	}

	router.Get("/health", s.health)
	router.Post("/api/chat", s.chat)
	router.Get("/api/chat/history/{user_id}", s.history)

	// Chat UI, when a static dir is configured.
	if staticDir != "" {
		router.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = "default_user"
	}

	// The core only sees the last user turn.
	var lastUserMessage string
	found := false
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUserMessage = msg.Content
			found = true
		}
	}
	if !found {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No user message found in the request"})
		return
	}

	answer, sources := s.responder.ProcessQuery(r.Context(), userID, lastUserMessage)
	if sources == nil {
		sources = []vector.Match{}
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Message: ChatMessage{Role: "assistant", Content: answer},
		Sources: sources,
	})
}

// history always answers with an empty list: chat history is not persisted.
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []ChatMessage{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
