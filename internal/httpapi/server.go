// Package httpapi implements the read-only HTTP surface of the Monitoring
// Bridge (C12, spec §4.12): the GET/POST endpoints a dashboard polls, built
// on labstack/echo/v4 with a WebSocket upgrade route served by
// internal/monitor's Hub.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flexicli/flexicli/internal/miniagent"
	"github.com/flexicli/flexicli/internal/monitor"
	"github.com/flexicli/flexicli/internal/session"
	"github.com/flexicli/flexicli/internal/tools"
)

// Deps bundles everything the HTTP surface reads from. Store is required;
// every other field degrades gracefully to an empty/zero response when nil,
// since a monitoring server may run before a session starts or without a
// mini-agent spawner configured.
type Deps struct {
	Store    *session.Store
	Registry *tools.Registry
	Spawner  *miniagent.Spawner
	Bus      *monitor.Bus
	Hub      *monitor.Hub
	Projects *session.Registry
	Logger   *zap.Logger
}

// layerUsage is the last-seen token usage for one memory layer, recorded by
// SetLastUsage whenever an Orchestrator turn completes.
type layerUsage struct {
	Tokens  int
	Cap     int
	Entries int
}

// Server is the Monitoring Bridge's HTTP/WS surface (spec §4.12).
type Server struct {
	echo      *echo.Echo
	deps      Deps
	startedAt time.Time
	host      string
	port      int

	mu        sync.RWMutex
	lastUsage map[string]layerUsage
}

// NewServer builds a Server bound to host:port, registering every route
// from spec §4.12.
func NewServer(deps Deps, host string, port int) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("httpapi: Store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Bus == nil {
		deps.Bus = monitor.NewBus()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:      e,
		deps:      deps,
		startedAt: time.Now(),
		host:      host,
		port:      port,
		lastUsage: make(map[string]layerUsage),
	}
	s.registerRoutes()
	return s, nil
}

// SetLastUsage records the most recent per-layer token usage so GET
// /api/memory can report a live snapshot between Orchestrator turns. The
// Orchestrator calls this (via its EventSink, or directly when wired as a
// dependency) after each RunTurn completes.
func (s *Server) SetLastUsage(layer string, tokens, budgetCap, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsage[layer] = layerUsage{Tokens: tokens, Cap: budgetCap, Entries: entries}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/api/health", s.handleHealth)
	s.echo.GET("/api/overview", s.handleOverview)
	s.echo.GET("/api/memory", s.handleMemory)
	s.echo.GET("/api/tools", s.handleTools)
	s.echo.GET("/api/sessions", s.handleSessions)
	s.echo.GET("/api/pipeline", s.handlePipeline)
	s.echo.GET("/api/agents", s.handleAgents)
	s.echo.GET("/api/projects", s.handleProjects)
	s.echo.GET("/api/events", s.handleEvents)
	s.echo.POST("/api/metrics/clear", s.handleMetricsClear)
	s.echo.GET("/api/ws", s.handleWS)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.deps.Logger.Info("starting monitoring http server", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
