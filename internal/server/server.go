// Package server is the local control surface: health, status, one-way
// lifecycle commands, a websocket event stream and prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"FloatOverlay/internal/display"
	"FloatOverlay/internal/logger"
	"FloatOverlay/internal/service"
	"FloatOverlay/internal/supervisor"
	"FloatOverlay/internal/window"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBody   = 64 << 10
	writeWait = 5 * time.Second
)

// Controller is the part of the overlay service the server drives.
type Controller interface {
	Start()
	Stop()
	Resume()
	Restart(spec *window.Spec)
	Status() service.Status
}

// Server serves the control API.
type Server struct {
	ctl      Controller
	hub      *supervisor.Hub
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	displays func() ([]display.Display, error)
}

// New builds the routes. hub and gatherer may be nil.
func New(ctl Controller, hub *supervisor.Hub, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		ctl:      ctl,
		hub:      hub,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     localOrigin,
		},
		mux:      http.NewServeMux(),
		displays: display.List,
	}
	s.mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/displays", s.handleDisplays)
	s.mux.HandleFunc("POST /api/start", s.command(func(*http.Request) error { ctl.Start(); return nil }))
	s.mux.HandleFunc("POST /api/stop", s.command(func(*http.Request) error { ctl.Stop(); return nil }))
	s.mux.HandleFunc("POST /api/resume", s.command(func(*http.Request) error { ctl.Resume(); return nil }))
	s.mux.HandleFunc("POST /api/restart", s.command(s.restart))
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	if gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the root handler. Browser requests from pages not
// served by this machine are refused.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !localOrigin(r) {
			http.Error(w, "forbidden origin", http.StatusForbidden)
			return
		}
		s.mux.ServeHTTP(w, r)
	})
}

// localOrigin accepts requests without an Origin header (CLI, curl) and
// those whose Origin host is the loopback.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Run listens on localhost:port until ctx is done.
func (s *Server) Run(ctx context.Context, port int) error {
	addr := fmt.Sprintf("localhost:%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Logger().Handler(), slog.LevelWarn),
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	logger.Info("control server listening", "url", "http://"+addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control server: %w", err)
	}
	return nil
}

// statusResponse is the service status plus the last failure the
// supervisor saw, which survives a recovery that clears the service's own.
type statusResponse struct {
	service.Status
	LastReported *supervisor.Failure `json:"lastReportedFailure,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.ctl.Status()}
	if s.hub != nil {
		if f, ok := s.hub.LastFailure(); ok {
			resp.LastReported = &f
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("status encode", "err", err)
	}
}

func (s *Server) handleDisplays(w http.ResponseWriter, _ *http.Request) {
	displays, err := s.displays()
	if err != nil {
		logger.Warn("list displays", "err", err)
		http.Error(w, "failed to list displays", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(displays)
}

// command wraps a one-way request: it is queued and answered with 202
// before the service has acted on it.
func (s *Server) command(fn func(*http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Debug("control command", "path", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}
}

// restart takes an optional window spec as the JSON body.
func (s *Server) restart(r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		s.ctl.Restart(nil)
		return nil
	}
	var spec window.Spec
	if err := json.Unmarshal(body, &spec); err != nil {
		return fmt.Errorf("invalid spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	s.ctl.Restart(&spec)
	return nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "event stream disabled", http.StatusNotFound)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade", "err", err)
		return
	}
	events, cancel := s.hub.Subscribe()
	defer cancel()

	// reader: only to notice the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("websocket read", "err", err)
				}
				return
			}
		}
	}()

	s.writePump(conn, events, gone)
}

func (s *Server) writePump(conn *websocket.Conn, events <-chan supervisor.Event, gone <-chan struct{}) {
	defer conn.Close()
	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("websocket write", "err", err)
				return
			}
		}
	}
}
