// Command enade consolidates the yearly ENADE microdata files into one
// dataset, once from the command line or on demand over HTTP with -serve.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/enade/internal/config"
	"github.com/JonMunkholm/enade/internal/core"
	_ "github.com/JonMunkholm/enade/internal/core/formats" // Register all output formats
	"github.com/JonMunkholm/enade/internal/logging"
	"github.com/JonMunkholm/enade/internal/pipeline"
	"github.com/JonMunkholm/enade/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $ENADE_CONFIG)")
	envPath := flag.String("env", "", "dotenv file to load before reading the environment (default .env)")
	serve := flag.Bool("serve", false, "serve the run API instead of running once")
	flag.Parse()

	// Overload overwrites existing env vars; a missing default .env is fine
	if *envPath != "" {
		if err := godotenv.Overload(*envPath); err != nil {
			slog.Error("failed to load env file", "path", *envPath, "error", err)
			os.Exit(1)
		}
	} else if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *serve); err != nil {
		slog.Error(core.FormatUserError(err), "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, serve bool) error {
	var db core.DB
	if cfg.Output.Format == "postgres" {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = pool
	}

	plan, err := pipeline.PlanFromConfig(cfg, db)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	driver := pipeline.NewDriver(pipeline.NewMetrics(reg))

	if !serve {
		report, err := driver.Run(ctx, plan)
		if err != nil {
			return err
		}
		for _, f := range report.Failed() {
			slog.Warn("file skipped", "path", f.Path, "error", f.Error)
		}
		return nil
	}

	limiter := pipeline.NewRunLimiter(cfg.Server.MaxConcurrentRuns)
	service := pipeline.NewService(ctx, driver, plan, limiter)
	server := web.NewServer(service, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), cfg.Server)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr(), "format", plan.Target.Format, "files", len(plan.Files))
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Runs share ctx and are already cancelling; wait for them to unwind
	if status := service.LimiterStatus(); status.Active > 0 {
		slog.Info("waiting for runs to stop", "active", status.Active)
		if err := service.Wait(shutdownCtx); err != nil {
			slog.Warn("runs did not stop in time", "error", err)
		}
	}
	return nil
}

// openPool connects to the database used by the postgres output format.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
