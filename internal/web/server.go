// Package web serves the detection JSON API and Prometheus metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/user/portalwatch/internal/metrics"
	"github.com/user/portalwatch/internal/portal"
	"github.com/user/portalwatch/internal/util"
)

// Server is the web server.
type Server struct {
	inst     portal.Instance
	recorder *metrics.Recorder
	port     int
	srv      *http.Server
}

// NewServer creates a new web server. recorder may be nil, in which case
// /metrics is not served.
func NewServer(inst portal.Instance, recorder *metrics.Recorder, port int) *Server {
	s := &Server{
		inst:     inst,
		recorder: recorder,
		port:     port,
	}
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	h := NewHandlers(s.inst)

	mux.HandleFunc("GET /api/status", h.APIGetStatus)
	mux.HandleFunc("GET /api/state", h.APIGetState)
	mux.HandleFunc("GET /api/networks", h.APIGetNetworks)
	mux.HandleFunc("POST /api/detect", h.APIDetect)
	mux.HandleFunc("POST /api/enable", h.APIEnable)
	mux.HandleFunc("POST /api/disable", h.APIDisable)
	mux.HandleFunc("POST /api/context/error-screen", h.APISetErrorScreen)
	mux.HandleFunc("POST /api/context/session", h.APISetSession)

	if s.recorder != nil {
		mux.Handle("GET /metrics", s.recorder.Handler())
	}
	return mux
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	util.Info("Web server starting on port %d", s.port)

	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// Stop stops the web server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
