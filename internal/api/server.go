// Package api provides the HTTP REST API and WebSocket server for Homedeck.
//
// It exposes the current signal snapshot, bounded history, family connection
// status, dashboard layout persistence, and the handful of device commands
// the wall dashboard issues (lights, plugs, speaker volume).
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/homedeck/homedeck-core/internal/bus"
	"github.com/homedeck/homedeck-core/internal/health"
	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
	"github.com/homedeck/homedeck-core/internal/infrastructure/logging"
	"github.com/homedeck/homedeck-core/internal/store"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// LightController switches a light on or off by its hub-assigned id.
// Satisfied by the hue client.
type LightController interface {
	SetLightState(ctx context.Context, id string, on bool) error
}

// PlugController switches a smart plug by name. Satisfied by the tapo client.
type PlugController interface {
	SetPlug(ctx context.Context, name string, on bool) error
}

// SpeakerController adjusts a speaker unit's volume. Satisfied by the sonos client.
type SpeakerController interface {
	SetVolume(ctx context.Context, unit string, level int) error
}

// LayoutRepository persists draggable dashboard element positions.
type LayoutRepository interface {
	Put(ctx context.Context, elementID string, pos store.Position) error
	Get(ctx context.Context, elementID string) (store.Position, error)
	List(ctx context.Context) (map[string]store.Position, error)
}

// Deps holds the dependencies required by the API server.
//
// The command controllers are optional: a family that is not configured
// leaves its controller nil and the matching endpoints answer 503.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Signals  *store.Signals
	History  *store.History
	Monitor  *health.Monitor
	Layout   LayoutRepository
	Bus      *bus.Bus
	Lights   LightController
	Plugs    PlugController
	Speakers SpeakerController
	Version  string
}

// Server is the HTTP API server for Homedeck.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	signals  *store.Signals
	history  *store.History
	monitor  *health.Monitor
	layout   LayoutRepository
	eventBus *bus.Bus
	lights   LightController
	plugs    PlugController
	speakers SpeakerController
	version  string
	server   *http.Server
	hub      *Hub
	subs     []bus.Subscription
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Signals == nil {
		return nil, fmt.Errorf("signal store is required")
	}
	if deps.Monitor == nil {
		return nil, fmt.Errorf("connection monitor is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		signals:  deps.Signals,
		history:  deps.History,
		monitor:  deps.Monitor,
		layout:   deps.Layout,
		eventBus: deps.Bus,
		lights:   deps.Lights,
		plugs:    deps.Plugs,
		speakers: deps.Speakers,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to the event
// bus for real-time WebSocket broadcast, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop the hub independently of the
	// parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	s.attachBus()

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// attachBus relays bus events to WebSocket clients. Signal updates go out
// on the "signals" channel, connection flips on "connection".
func (s *Server) attachBus() {
	if s.eventBus == nil {
		return
	}

	s.subs = append(s.subs, s.eventBus.On(bus.TypeSignalUpdated, func(ev bus.Event) {
		if update, ok := ev.(bus.SignalUpdated); ok {
			s.hub.Broadcast(ChannelSignals, update)
		}
	}))

	s.subs = append(s.subs, s.eventBus.On(bus.TypeConnection, func(ev bus.Event) {
		if change, ok := ev.(bus.ConnectionChanged); ok {
			s.hub.Broadcast(ChannelConnection, change)
		}
	}))
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.eventBus != nil {
		for _, sub := range s.subs {
			s.eventBus.Off(sub)
		}
		s.subs = nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
