// Package server assembles the daemon: it builds every component once from
// the configuration and mounts the HTTP and websocket routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/opencode-tui/internal/api/http"
	"github.com/GriffinCanCode/opencode-tui/internal/api/middleware"
	"github.com/GriffinCanCode/opencode-tui/internal/api/ws"
	"github.com/GriffinCanCode/opencode-tui/internal/app"
	"github.com/GriffinCanCode/opencode-tui/internal/commands"
	"github.com/GriffinCanCode/opencode-tui/internal/domain/consent"
	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/config"
	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/logging"
	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/clipboard"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/discovery"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/opener"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/ports"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/sidecar"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/paths"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	provider  *app.Provider
	terminals *terminal.Manager
	discovery *discovery.Service
	capture   *discovery.CaptureManager
	index     *filelink.Index
	tracer    *tracing.Tracer
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
	unsubs    []func()
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return NewServerWithLogger(cfg, logger)
}

// NewServerWithLogger creates a server that logs through logger
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	roots := cfg.TUI.WorkspaceRoots
	logger.Info("Initializing opencode-tui",
		zap.String("addr", net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.Strings("workspace", roots),
		zap.String("command", cfg.TUI.Command))

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("opencode-tui", logger.Logger)

	allocator := ports.NewAllocator(ports.Config{
		Start: cfg.Ports.Start,
		Size:  cfg.Ports.Size,
		Host:  "127.0.0.1",
	})

	terminals := terminal.NewManager(terminal.Config{
		Logger:         logger.Logger,
		Ports:          allocator,
		WorkspaceRoots: roots,
		ScrollbackSize: cfg.TUI.ScrollbackBytes,
	})

	s := &Server{
		terminals: terminals,
		tracer:    tracer,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}

	s.unsubs = append(s.unsubs,
		terminals.OnChange(func(ev terminal.ChangeEvent) {
			if ev.Kind == terminal.ChangeCreated {
				metrics.RecordSessionCreated()
			} else {
				metrics.RecordSessionEnded(string(ev.Kind))
			}
			metrics.SetPortsInUse(allocator.InUse())
		}),
		terminals.OnData(func(ev terminal.DataEvent) {
			metrics.AddOutputBytes(len(ev.Data))
		}),
	)

	var err error
	statePath := cfg.Consent.StatePath
	if statePath == "" {
		if statePath, err = paths.StatePath(); err != nil {
			s.Close()
			return nil, err
		}
	}
	store, err := consent.NewStore(statePath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load consent state: %w", err)
	}
	prompts := consent.NewQueue(cfg.Consent.PromptTimeout.Std())
	s.unsubs = append(s.unsubs, prompts.OnPrompt(func(req consent.Request) {
		logger.Info("Consent required; answer with POST /consent/"+req.ID,
			zap.String("terminal", req.Terminal),
			zap.String("command", req.Command))
	}))
	gate := consent.NewGate(store, prompts, logger.Logger)

	s.discovery = discovery.NewService(terminals)
	s.capture = discovery.NewCaptureManager(terminals, discovery.CaptureConfig{Logger: logger.Logger})

	if len(roots) > 0 {
		index, err := filelink.NewIndex(filelink.IndexConfig{
			Root:   roots[0],
			Watch:  cfg.TUI.WatchWorkspace,
			Logger: logger.Logger,
		})
		if err != nil {
			logger.Warn("Workspace index disabled", zap.Error(err))
		} else {
			s.index = index
		}
	}
	resolver := filelink.NewResolver(roots, s.index, logger.Logger)

	open := opener.New(opener.Config{
		FileCommand: cfg.Opener.FileCommand,
		URLCommand:  cfg.Opener.URLCommand,
		Logger:      logger.Logger,
	})

	clip := clipboard.NewProvider()
	if !clip.System() {
		logger.Info("System clipboard unavailable, using in-memory clipboard")
	}

	httpTimeout := cfg.TUI.HTTPTimeout.Std()
	sidecars := func(port int) app.Sidecar {
		return &timedSidecar{
			client: sidecar.New(sidecar.Config{
				Port:     port,
				Timeout:  httpTimeout,
				Logger:   logger.Logger,
				OnHealth: metrics.RecordSidecarHealth,
			}),
			metrics: metrics,
		}
	}

	deps := app.Deps{
		Terminals: terminals,
		Ports:     allocator,
		Sidecar:   sidecars,
		Clipboard: clip,
		Opener:    open,
		Resolver:  resolver,
		Discovery: s.discovery,
		Capture:   s.capture,
		Consent:   gate,
		Logger:    logger.Logger,
	}
	s.provider = app.NewProvider(app.Options{
		Command:          cfg.TUI.Command,
		AutoStart:        cfg.TUI.AutoStart,
		AutoFocusOnSend:  cfg.TUI.AutoFocusOnSend,
		Shell:            cfg.TUI.ShellPath,
		ShellArgs:        cfg.TUI.ShellArgs,
		EnableHTTPAPI:    cfg.TUI.EnableHTTPAPI,
		HTTPTimeout:      httpTimeout,
		AutoShareContext: cfg.TUI.AutoShareContext,
		WorkspaceRoots:   roots,
	}, deps)

	registry := commands.New(s.provider, roots)

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Status:     s.provider,
		Commands:   registry,
		Terminals:  terminals,
		Foreign:    s.discovery,
		Resolver:   resolver,
		Opener:     open,
		Prompts:    prompts,
		Metrics:    metrics,
		Logger:     logger.Logger,
		Shell:      cfg.TUI.ShellPath,
		DefaultDir: paths.WorkingDir(roots),
	})
	wsHandler := ws.NewHandler(s.provider, ws.Config{
		Logger:  logger.Logger,
		Metrics: metrics,
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoopbackOnly())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst))
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers.Register(router)
	router.GET("/terminal", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.router = router
	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Provider returns the OpenCode session provider
func (s *Server) Provider() *app.Provider {
	return s.provider
}

// Run serves until ctx is cancelled, then shuts the listener down
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// Close disposes every component. It is safe on a partially built server.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.provider != nil {
		s.provider.Dispose()
	}
	if s.capture != nil {
		s.capture.CleanupAll()
	}
	if s.discovery != nil {
		s.discovery.Dispose()
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.terminals.Dispose()

	var err error
	if s.index != nil {
		if cerr := s.index.Close(); cerr != nil {
			s.logger.Warn("Failed to close workspace index", zap.Error(cerr))
			err = cerr
		}
	}
	s.tracer.Close()
	s.logger.Close()
	return err
}

// timedSidecar records sidecar latency and outcomes
type timedSidecar struct {
	client  *sidecar.Client
	metrics *monitoring.Metrics
}

func (t *timedSidecar) WaitHealthy(ctx context.Context) bool {
	timer := monitoring.NewTimer(t.metrics, "sidecar", "wait_healthy")
	ok := t.client.WaitHealthy(ctx)
	status := "success"
	if !ok {
		status = "error"
	}
	timer.Stop(status)
	return ok
}

func (t *timedSidecar) AppendPrompt(ctx context.Context, text string) error {
	timer := monitoring.NewTimer(t.metrics, "sidecar", "append_prompt")
	err := t.client.AppendPrompt(ctx, text)
	timer.Stop(monitoring.Outcome(err))
	return err
}
