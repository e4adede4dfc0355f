// Package api provides the local HTTP API and the websocket bridge that
// UI clients use to drive the listener and receive input events.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"inputcap/internal/command"
	"inputcap/internal/config"
	"inputcap/internal/logging"
	"inputcap/internal/ui"
)

// Server provides the HTTP API for local control
type Server struct {
	commands  *command.Dispatcher
	configMgr *config.Manager
	hub       *Hub
	logger    logging.Logger
}

// NewServer creates a new API server. configMgr may be nil, in which case
// the config endpoints are disabled and no token is enforced.
func NewServer(commands *command.Dispatcher, configMgr *config.Manager, hub *Hub, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		commands:  commands,
		configMgr: configMgr,
		hub:       hub,
		logger:    logger,
	}
}

// Handler returns the routed handler with auth and panic recovery applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/commands/{name}", s.handleCommand)
	mux.HandleFunc("/api/commands", s.handleListCommands)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/", ui.Handler())
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	}
	return s.authMiddleware(s.recoverMiddleware(mux))
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("API server listening", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Recovered from handler panic", "path", r.URL.Path, "panic", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks the API token if one is configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("API request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

		// Health check and the static panel carry no data
		if r.URL.Path == "/health" || !protected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if token := s.token(); token != "" {
			got := r.Header.Get("Authorization")
			if r.URL.Path == "/ws" && got == "" {
				// Browsers cannot set headers on websocket upgrades
				got = "Bearer " + r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte("Bearer "+token)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func protected(path string) bool {
	return path == "/ws" || strings.HasPrefix(path, "/api/")
}

func (s *Server) token() string {
	if s.configMgr == nil {
		return ""
	}
	return s.configMgr.Get().API.Token
}

// handleCommand handles POST /api/commands/{name}
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.PathValue("name")
	s.logger.Info("Invoking command", "command", name, "remote", r.RemoteAddr)

	data, err := s.commands.Invoke(r.Context(), name)
	switch {
	case errors.Is(err, command.ErrUnknownCommand):
		writeJSON(w, http.StatusNotFound, commandResponse{Command: name, Error: err.Error()})
	case err != nil:
		s.logger.Warn("Command failed", "command", name, "err", err)
		writeJSON(w, http.StatusInternalServerError, commandResponse{Command: name, Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, commandResponse{Command: name, OK: true, Data: data})
	}
}

type commandResponse struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// handleListCommands handles GET /api/commands
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"commands": s.commands.Names()})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := s.commands.Invoke(r.Context(), command.InputListenerStatus)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := map[string]any{"listener": st}
	if s.hub != nil {
		resp["clients"] = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleConfig handles GET (read) and POST (update) for configuration
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		http.Error(w, "Configuration is not managed", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.configMgr.Get())

	case http.MethodPost:
		// Forms and text/plain can be posted cross-site without a preflight
		if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
			http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
			return
		}

		// Fields missing from the body keep their current values
		cfg := s.configMgr.Get()
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid configuration data", http.StatusBadRequest)
			return
		}

		s.logger.Info("Receiving configuration update", "remote", r.RemoteAddr)

		if err := s.configMgr.Set(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.configMgr.Save(); err != nil {
			s.logger.Error("Failed to save received config", "err", err)
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
