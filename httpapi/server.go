package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pkt.systems/codeyard/core"
	"pkt.systems/codeyard/internal/eventbus"
	"pkt.systems/codeyard/internal/version"
	"pkt.systems/codeyard/schema"
)

const maxBodyBytes = 8 << 20

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	service  core.Service
	hub      *Hub
	bus      *eventbus.Bus
	limiters *limiterSet
	proxy    *trustedProxy
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, service core.Service, hub *Hub, bus *eventbus.Bus) (*Server, error) {
	proxy, err := parseTrustedProxy(cfg.TrustedProxy)
	if err != nil {
		return nil, err
	}
	if hub == nil {
		hub = NewHub(cfg.HubHistory)
	}
	return &Server{
		cfg:      cfg,
		service:  service,
		hub:      hub,
		bus:      bus,
		limiters: newLimiterSet(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		proxy:    proxy,
	}, nil
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions/reap", s.handleReapSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionState)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.handleSessionHistory)
	mux.HandleFunc("POST /api/sessions/{id}/join", s.handleJoinSession)
	mux.HandleFunc("POST /api/sessions/{id}/leave", s.handleLeaveSession)
	mux.HandleFunc("POST /api/sessions/{id}/code", s.handleUpdateCode)
	mux.HandleFunc("POST /api/sessions/{id}/cursor", s.handleUpdateCursor)
	mux.HandleFunc("GET /api/sessions/{id}/live", s.handleLive)

	mux.HandleFunc("POST /api/deployments", s.handleStartDeployment)
	mux.HandleFunc("GET /api/deployments", s.handleListDeployments)
	mux.HandleFunc("GET /api/deployments/{id}", s.handleDeploymentStatus)
	mux.HandleFunc("GET /api/deployments/{id}/logs", s.handleDeploymentLogs)
	mux.HandleFunc("POST /api/deployments/{id}/cancel", s.handleCancelDeployment)
	mux.HandleFunc("GET /api/deployments/{id}/stream", s.handleDeploymentStream)

	mux.HandleFunc("GET /api/providers", s.handleListProviders)
	mux.HandleFunc("POST /api/providers/{provider}/script", s.handleGenerateScript)

	return withRequestLogging(withRateLimit(mux, s.limiters, s.proxy), s.proxy)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": version.Current()})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrUnsupportedProvider), errors.Is(err, schema.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	return nil
}

// decodeOptionalJSON accepts an empty body and leaves target untouched.
func decodeOptionalJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	return nil
}

func limitBody(w http.ResponseWriter, r *http.Request) io.Reader {
	return http.MaxBytesReader(w, r.Body, maxBodyBytes)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", event.Seq); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return err
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
