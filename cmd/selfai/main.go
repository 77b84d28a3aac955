package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/selfai-labs/selfai/internal/adapter/contentapi"
	"github.com/selfai-labs/selfai/internal/adapter/fallback"
	"github.com/selfai-labs/selfai/internal/adapter/filekv"
	selfaihttp "github.com/selfai-labs/selfai/internal/adapter/http"
	selfaimcp "github.com/selfai-labs/selfai/internal/adapter/mcp"
	"github.com/selfai-labs/selfai/internal/adapter/natskv"
	selfaiotel "github.com/selfai-labs/selfai/internal/adapter/otel"
	"github.com/selfai-labs/selfai/internal/adapter/ristretto"
	"github.com/selfai-labs/selfai/internal/adapter/ws"
	"github.com/selfai-labs/selfai/internal/config"
	"github.com/selfai-labs/selfai/internal/logger"
	"github.com/selfai-labs/selfai/internal/middleware"
	"github.com/selfai-labs/selfai/internal/port/statestore"
	"github.com/selfai-labs/selfai/internal/resilience"
	"github.com/selfai-labs/selfai/internal/secrets"
	"github.com/selfai-labs/selfai/internal/service"
)

const version = "0.1.0"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"content_api", cfg.ContentAPI.URL,
		"nats", cfg.NATS.URL != "",
		"mcp", cfg.MCP.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownOtel, err := selfaiotel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	// --- Infrastructure ---

	// Snapshot store: NATS JetStream KV when configured, local file otherwise.
	var store statestore.Store
	if cfg.NATS.URL != "" {
		natsStore, err := natskv.Open(ctx, cfg.NATS.URL, cfg.NATS.Bucket)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		defer natsStore.Close()
		store = natsStore
		slog.Info("snapshot store ready", "backend", "nats", "bucket", cfg.NATS.Bucket)
	} else {
		store = filekv.New(cfg.Store.Path)
		slog.Info("snapshot store ready", "backend", "file", "path", cfg.Store.Path)
	}

	// Generation cache
	contentCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer contentCache.Close()

	// Content backend API key: config value, overridable by a secret file.
	apiKey := cfg.ContentAPI.APIKey
	vault, err := secrets.NewVault(secrets.FileLoader("SELFAI_CONTENT_API_KEY"))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	if v := vault.Get("SELFAI_CONTENT_API_KEY"); v != "" {
		apiKey = v
	}

	// Content backend with circuit breaker
	remote := contentapi.NewClient(cfg.ContentAPI.URL, apiKey, cfg.ContentAPI.Timeout)
	remote.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	hub := ws.NewHub()
	workflow := service.NewWorkflow(service.NewRegistry(), service.NewQueue(), remote, fallback.New())
	workflow.SetBroadcaster(hub)
	workflow.SetCache(contentCache, cfg.Cache.TTL)
	workflow.SetStore(ctx, store)

	if metrics, err := selfaiotel.NewMetrics(); err != nil {
		slog.Warn("metrics init failed", "error", err)
	} else {
		workflow.SetMetrics(metrics)
	}

	// --- HTTP ---
	handlers := &selfaihttp.Handlers{Workflow: workflow}

	r := chi.NewRouter()
	r.Use(selfaihttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(selfaihttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(selfaiotel.HTTPMiddleware(cfg.Logging.Service))

	r.Get("/health", healthHandler(remote))
	r.Get("/ws", hub.HandleWS)
	selfaihttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- MCP ---
	var mcpServer *selfaimcp.Server
	if cfg.MCP.Enabled {
		mcpServer = selfaimcp.NewServer(
			selfaimcp.ServerConfig{Addr: cfg.MCP.Addr, Name: "selfai", Version: version},
			selfaimcp.ServerDeps{Agents: workflow, Posts: workflow},
		)
		if err := mcpServer.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
	}

	// --- Serve ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if mcpServer != nil {
			if err := mcpServer.Stop(shutdownCtx); err != nil {
				slog.Warn("mcp shutdown failed", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// healthHandler reports service health including content backend reachability.
func healthHandler(remote *contentapi.Client) http.HandlerFunc {
	type healthStatus struct {
		Status     string `json:"status"`
		ContentAPI string `json:"content_api"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", ContentAPI: "ok"}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if ok, err := remote.Health(ctx); err != nil || !ok {
			status.ContentAPI = "unreachable"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
