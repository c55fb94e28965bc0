package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"jude-e/backend/internal/api"
	"jude-e/backend/internal/config"
	"jude-e/backend/internal/database"
	"jude-e/backend/internal/llm"
	"jude-e/backend/internal/observability"
	"jude-e/backend/internal/prompt"
	"jude-e/backend/internal/repository"
	"jude-e/backend/internal/retrieval"
	"jude-e/backend/internal/service"
)

const (
	shutdownTimeout   = 15 * time.Second
	readinessInterval = 2 * time.Second
	readinessTimeout  = 5 * time.Second
)

// App is the assembled chat server.
type App struct {
	Config  *config.Config
	Server  *http.Server
	Health  *service.HealthService
	Metrics *observability.Metrics
	// DB is nil when the turn ledger is disabled.
	DB *sql.DB
}

// NewApp builds every component from cfg. It does not start listening.
func NewApp(cfg *config.Config) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	mode, err := llm.ParseMode(cfg.RelayMode)
	if err != nil {
		return nil, err
	}
	policy, err := service.ParseContextPolicy(cfg.ContextFailurePolicy)
	if err != nil {
		return nil, err
	}

	retriever := retrieval.NewClient(cfg.ContextURL, retrieval.Options{
		FilterByDistance:  cfg.ContextFilterByDistance,
		DistanceThreshold: cfg.ContextDistanceThreshold,
	})
	gateway, err := llm.NewGateway(llm.Config{
		Provider:      cfg.LLMProvider,
		OllamaURL:     cfg.OllamaURL,
		OllamaModel:   cfg.OllamaModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
	})
	if err != nil {
		return nil, err
	}
	composer := prompt.NewComposer(prompt.Sampling{
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		TopK:        cfg.TopK,
	})

	var db *sql.DB
	turns := repository.NewNopRepository()
	if cfg.TurnLogPath != "" {
		db, err = database.InitDB(cfg.TurnLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize turn ledger: %w", err)
		}
		turns = repository.NewSQLiteRepository(db)
		slog.Info("Recording turns to SQLite", "path", cfg.TurnLogPath)
	}

	chatService := service.NewChatService(retriever, composer, gateway, turns, metrics, service.ChatOptions{
		Mode:              mode,
		ContextPolicy:     policy,
		ContextTimeout:    cfg.ContextTimeout,
		GenerationTimeout: cfg.GenerationTimeout,
	})
	turnService := service.NewTurnService(turns)
	healthService := service.NewHealthService(retriever, gateway, readinessTimeout)

	router := api.NewRouter(
		api.NewChatHandler(chatService, metrics),
		api.NewTurnHandler(turnService),
		api.NewHealthHandler(healthService),
		api.RouterConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("Application assembled",
		"relay_mode", mode,
		"context_policy", policy,
		"provider", cfg.LLMProvider,
		"model", gateway.Model(),
	)

	return &App{
		Config:  cfg,
		Server:  server,
		Health:  healthService,
		Metrics: metrics,
		DB:      db,
	}, nil
}

// Serve listens until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases resources held outside the HTTP server.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	logCloser := setupLogger(cfg.LogLevel, cfg.LogFile)
	defer func() {
		if err := logCloser.Close(); err != nil {
			slog.Error("Failed to close log file", "error", err)
		}
	}()
	logConfigSource(cfg.Source)

	shutdownTracing, err := observability.InitTracing(cfg.TraceExporter, os.Stdout)
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

	application, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WaitForBackends {
		if err := waitForBackends(ctx, application.Health, cfg.BackendWaitTimeout); err != nil {
			slog.Error("Backends did not become ready", "error", err)
			return 1
		}
	}

	if err := application.Serve(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		return 1
	}
	slog.Info("Server stopped")
	return 0
}

func waitForBackends(ctx context.Context, health *service.HealthService, timeout time.Duration) error {
	slog.Info("Waiting for the context service and generation backend to be ready...", "timeout", timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := health.WaitUntilReady(ctx, readinessInterval); err != nil {
		return err
	}
	slog.Info("Backends are ready.")
	return nil
}

func logConfigSource(configFileUsed string) {
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

// setupLogger installs the JSON slog default. With a log file, output is
// duplicated into a rotating file. The returned closer is never nil.
func setupLogger(logLevel, logFile string) io.Closer {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
