// Package server exposes the panel over HTTP: a REST API for conversations
// and settings, and a websocket carrying the live event stream.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/zhubert/plural-panel/config"
	"github.com/zhubert/plural-panel/conversation"
	"github.com/zhubert/plural-panel/logger"
	"github.com/zhubert/plural-panel/panel"
)

// Server wires the HTTP surface to the panel, store, and config.
type Server struct {
	cfg     *config.Config
	store   *conversation.Store
	factory panel.RunnerFactory
	log     *slog.Logger
}

// New creates a server. factory is invoked once per websocket connection to
// build that connection's CLI runner.
func New(cfg *config.Config, store *conversation.Store, factory panel.RunnerFactory, log *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		factory: factory,
		log:     log,
	}
}

// Routes returns the full HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"vscode-webview://*", "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/conversations", s.handleListConversations)
		r.Get("/conversations/{sessionID}", s.handleGetConversation)
		r.Delete("/conversations/{sessionID}", s.handleDeleteConversation)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/mcp", s.handleListMCP)
		r.Post("/mcp", s.handleAddMCP)
		r.Delete("/mcp/{name}", s.handleRemoveMCP)

		r.Delete("/logs", s.handleClearLogs)
	})

	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List()
	if err != nil {
		s.log.Error("failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conv, err := s.store.Load(sessionID)
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, conversation.ErrInvalidSessionID):
		writeError(w, http.StatusBadRequest, "invalid session id")
	case err != nil:
		s.log.Error("failed to load conversation", "sessionID", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
	default:
		writeJSON(w, http.StatusOK, conv)
	}
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.store.Delete(sessionID); err != nil {
		if errors.Is(err, conversation.ErrInvalidSessionID) {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		s.log.Error("failed to delete conversation", "sessionID", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.GetSettings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings config.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}
	if err := s.cfg.ApplySettings(settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cfg.Save(); err != nil {
		s.log.Error("failed to save config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.GetSettings())
}

func (s *Server) handleListMCP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.GetMCPServers())
}

func (s *Server) handleAddMCP(w http.ResponseWriter, r *http.Request) {
	var server config.MCPServer
	if err := json.NewDecoder(r.Body).Decode(&server); err != nil {
		writeError(w, http.StatusBadRequest, "invalid MCP server payload")
		return
	}
	if err := s.cfg.AddMCPServer(server); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.cfg.Save(); err != nil {
		s.log.Error("failed to save config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save MCP server")
		return
	}
	writeJSON(w, http.StatusCreated, server)
}

func (s *Server) handleRemoveMCP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.cfg.RemoveMCPServer(name) {
		writeError(w, http.StatusNotFound, "MCP server not found")
		return
	}
	if err := s.cfg.Save(); err != nil {
		s.log.Error("failed to save config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	count, err := logger.ClearLogs()
	if err != nil {
		s.log.Error("failed to clear logs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
