package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/smartkrishi/smartkrishi-go/internal/apiclient"
	"github.com/smartkrishi/smartkrishi-go/internal/config"
	"github.com/smartkrishi/smartkrishi-go/internal/handler"
	"github.com/smartkrishi/smartkrishi-go/internal/logging"
	"github.com/smartkrishi/smartkrishi-go/internal/middleware"
	"github.com/smartkrishi/smartkrishi-go/internal/service"
	"github.com/smartkrishi/smartkrishi-go/internal/session"
	"github.com/smartkrishi/smartkrishi-go/internal/storage"
	"github.com/smartkrishi/smartkrishi-go/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	logger, logOut := logging.New(logging.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.Production(),
		File:  cfg.LogFile,
	})
	defer logOut.Close()
	slog.SetDefault(logger)

	displayAppname(cfg.AppName)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		logOut.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, "smartkrishi-web", logger)

	store, notifier, closeStorage, err := openStorage(ctx, cfg.StorageDir, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	creds := session.NewCredentials(store, logger)
	sessions := session.NewStore(creds, logger)
	provider := session.NewProvider(sessions, notifier)
	provider.Start()
	defer provider.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := apiclient.New(cfg.BackendURL, creds,
		apiclient.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
		apiclient.WithMetrics(apiclient.NewMetrics(reg)),
		apiclient.WithLogger(logger.With("component", "apiclient")),
	)

	views, err := handler.NewViews(cfg.AppName, logger)
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.Routes{
		Provider:  provider,
		Views:     views,
		Auth:      handler.NewAuthHandler(service.NewAuthService(client), views, logger),
		Pages:     handler.NewPageHandler(views),
		Soil:      handler.NewSoilHandler(service.NewSoilService(client), views, cfg.Soil, logger),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		FormLimit: middleware.RateLimit(ctx, 5, 10),
		Use:       []func(http.Handler) http.Handler{middleware.Logger(logger)},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, "smartkrishi-web"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"backend", cfg.BackendURL,
			"storage", cfg.StorageDir,
			"authenticated", sessions.Authenticated(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("flushing traces", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStorage opens the credential storage at dir and its change feed. When
// the directory cannot be watched the client runs without cross-client sync.
func openStorage(ctx context.Context, dir string, logger *slog.Logger) (storage.Storage, storage.Notifier, func(), error) {
	if dir == config.MemoryStorage {
		m := storage.NewMemory()
		return m, m, func() {}, nil
	}

	fs, err := storage.NewFileStorage(dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	w, err := storage.NewWatcher(fs, logger.With("component", "watcher"))
	if err != nil {
		logger.Warn("storage changes will not be followed", "dir", fs.Dir(), "error", err)
		return fs, storage.NopNotifier{}, func() {}, nil
	}
	w.Start(ctx)

	closeFn := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Shutdown(shutdownCtx); err != nil {
			logger.Warn("stopping watcher", "error", err)
		}
	}

	return fs, w, closeFn, nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
