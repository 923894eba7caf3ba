package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/a2a"
	"github.com/roundtable-ai/roundtable/api/handlers"
	"github.com/roundtable-ai/roundtable/config"
	"github.com/roundtable-ai/roundtable/executor"
	"github.com/roundtable-ai/roundtable/groupchat"
	"github.com/roundtable-ai/roundtable/internal/metrics"
	"github.com/roundtable-ai/roundtable/internal/server"
	"github.com/roundtable-ai/roundtable/internal/telemetry"
	"github.com/roundtable-ai/roundtable/llm"
	"github.com/roundtable-ai/roundtable/participant"
	"github.com/roundtable-ai/roundtable/thread"
)

// Server wires the service together: store, participants, executor,
// handlers, HTTP listener.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager *server.Manager
	otel        *telemetry.Providers

	store         thread.Store
	root          participant.Participant
	executor      *executor.Executor
	collector     *metrics.Collector
	rateLimCancel context.CancelFunc
}

// NewServer creates an unstarted server from cfg.
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{cfg: cfg, logger: logger, otel: otel}
}

// Start builds every component and begins serving.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("roundtable", s.logger)

	store, err := thread.NewStore(storeConfig(s.cfg.Store))
	if err != nil {
		return fmt.Errorf("init thread store: %w", err)
	}
	s.store = store

	s.root = s.buildParticipant()
	s.executor = executor.New(executor.Config{
		MaxConcurrentTurns: s.cfg.Server.MaxConcurrentTurns,
		StoreBackend:       s.cfg.Store.Type,
	}, s.store, s.root, s.collector, s.logger)

	return s.startHTTPServer()
}

// buildParticipant assembles the conversation topology: the local chat
// participant, any configured remote agents, and optionally a round-robin
// group wrapping them all.
func (s *Server) buildParticipant() participant.Participant {
	replies := s.cfg.Participant.Replies
	if len(replies) == 0 {
		replies = []string{"Let me think about that and get back to you."}
	}
	provider := llm.NewScriptedProvider(s.cfg.Participant.Model, replies)
	local := participant.NewChatParticipant(participant.ChatConfig{
		Name:         s.cfg.Participant.Name,
		Model:        s.cfg.Participant.Model,
		SystemPrompt: s.cfg.Participant.SystemPrompt,
		Greeting:     s.cfg.Participant.Greeting,
		Timeout:      s.cfg.Participant.Timeout,
	}, provider, s.logger)

	members := []participant.Participant{local}
	for _, rc := range s.cfg.Remotes {
		resolver := a2a.DefaultResolverConfig(rc.URL)
		if rc.CardPath != "" {
			resolver.CardPath = rc.CardPath
		}
		remote := a2a.NewRemoteParticipant(a2a.RemoteConfig{
			Name:     rc.Name,
			Resolver: resolver,
			Timeout:  rc.Timeout,
		}, s.logger)
		members = append(members, remote)
		s.logger.Info("remote participant configured",
			zap.String("name", remote.Name()),
			zap.String("url", rc.URL),
		)
	}

	if !s.cfg.Group.Enabled {
		if len(members) > 1 {
			s.logger.Warn("remote participants configured but group chat is disabled, serving local participant only")
		}
		return local
	}

	group, err := groupchat.New(groupchat.Config{
		Name:          s.cfg.Group.Name,
		MaxIterations: s.cfg.Group.MaxIterations,
	}, members, s.logger)
	if err != nil {
		// Only possible with an empty roster, which validation excludes.
		s.logger.Error("group setup failed, falling back to single participant", zap.Error(err))
		return local
	}
	return group
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(s.logger)
	healthHandler.RegisterCheck(storeCheck{store: s.store})
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReady)
	mux.Handle("/metrics", promhttp.Handler())

	turnHandler := handlers.NewTurnHandler(s.executor, s.logger)
	mux.HandleFunc("/v1/turns", turnHandler.HandleTurn)
	mux.HandleFunc("/v1/turns/stream", turnHandler.HandleStream)

	cardHandler := a2a.NewCardHandler(s.agentCard(), s.logger)
	mux.Handle(a2a.WellKnownCardPath, cardHandler)

	a2aHandler := handlers.NewA2AHandler(s.root, s.logger)
	mux.HandleFunc("/a2a/messages", a2aHandler.HandleMessages)

	rateLimCtx, cancel := context.WithCancel(context.Background())
	s.rateLimCancel = cancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		RateLimiter(rateLimCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}
	s.logger.Info("server started",
		zap.Int("port", s.cfg.Server.HTTPPort),
		zap.String("participant", s.root.Name()),
		zap.String("state_kind", s.root.StateKind()),
		zap.String("store", s.cfg.Store.Type),
	)
	return nil
}

// agentCard describes this service for remote peers.
func (s *Server) agentCard() a2a.AgentCard {
	return a2a.AgentCard{
		Name:               s.root.Name(),
		Description:        "Roundtable conversation service",
		URL:                fmt.Sprintf("http://localhost:%d", s.cfg.Server.HTTPPort),
		Version:            Version,
		ProtocolVersion:    "0.3.0",
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Capabilities:       a2a.Capabilities{Streaming: true},
		Skills: []a2a.Skill{
			{
				ID:          "conversation",
				Name:        "Conversation",
				Description: "Multi-turn conversation with durable session state",
				Tags:        []string{"chat"},
			},
		},
	}
}

// WaitForShutdown blocks until a shutdown signal, then tears everything
// down.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown releases every resource in reverse start order.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	if s.rateLimCancel != nil {
		s.rateLimCancel()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(context.Background()); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("thread store close error", zap.Error(err))
		}
	}
	if s.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}

// storeConfig maps service configuration onto the thread store's own
// config type.
func storeConfig(cfg config.StoreConfig) thread.StoreConfig {
	out := thread.DefaultStoreConfig()
	out.Type = thread.StoreType(cfg.Type)
	if cfg.Redis.Addr != "" {
		out.Redis.Addr = cfg.Redis.Addr
	}
	out.Redis.Password = cfg.Redis.Password
	out.Redis.DB = cfg.Redis.DB
	if cfg.Redis.KeyPrefix != "" {
		out.Redis.KeyPrefix = cfg.Redis.KeyPrefix
	}
	out.Redis.TTL = cfg.Redis.TTL
	if cfg.SQLite.Path != "" {
		out.SQLite.Path = cfg.SQLite.Path
	}
	return out
}

// storeCheck probes the thread store for readiness.
type storeCheck struct {
	store thread.Store
}

func (c storeCheck) Name() string { return "thread_store" }

func (c storeCheck) Check(ctx context.Context) error {
	return c.store.Ping(ctx)
}
