// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shellgate/shellgate/internal/auth"
	"github.com/shellgate/shellgate/internal/config"
	"github.com/shellgate/shellgate/internal/fs"
	"github.com/shellgate/shellgate/internal/sessions"
	"github.com/shellgate/shellgate/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	commands, err := config.LoadCannedCommands(cfg.CannedCommandsFile)
	if err != nil {
		log.Printf("WARNING: canned commands unavailable: %v", err)
	}

	workspace := fs.NewWorkspace(cfg.RootDir)
	registry := sessions.NewRegistry(sessions.Config{
		Shell:          cfg.Shell,
		Timeout:        cfg.SessionTimeout,
		MaxSessions:    cfg.MaxSessions,
		ScrollbackSize: cfg.ScrollbackSize,
		Workspace:      workspace,
	})

	sweeper, err := sessions.StartSweeper(registry, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}

	var verifier *auth.Verifier
	if cfg.AuthEnabled {
		verifier = auth.NewVerifier(cfg.AuthTokens)
	}
	log.Printf("Config: Shell=%s, RootDir=%s, SessionTimeout=%s, MaxSessions=%d, AuthEnabled=%v",
		cfg.Shell, workspace.Root(), cfg.SessionTimeout, cfg.MaxSessions, cfg.AuthEnabled)

	gateway := ws.NewGateway(registry, verifier,
		workspace.FilterDirs(cfg.QuickAccessDirs), commands, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: NewServer(gateway).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server: %v", err)
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	sweeper.Stop()
	registry.Shutdown()
}

// Server wires the gateway into the HTTP surface.
type Server struct {
	gateway *ws.Gateway
}

func NewServer(gw *ws.Gateway) *Server {
	return &Server{gateway: gw}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.gateway.HandleWebSocket)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
