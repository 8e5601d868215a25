// Command staffauth-web serves the staff console sign-in pages and
// dashboards.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/skvrent/staffauth"
	"github.com/skvrent/staffauth/internal/config"
	otelexport "github.com/skvrent/staffauth/metrics/export/otel"
	"github.com/skvrent/staffauth/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env-file", ".env", "dotenv file, ignored when missing")
	devRedis := flag.Bool("dev-redis", false, "run an in-process miniredis for sessions and the in-flight guard")
	flag.Parse()

	if err := run(*configPath, *envFile, *devRedis); err != nil {
		fmt.Fprintf(os.Stderr, "staffauth-web: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string, devRedis bool) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := staffauth.New().WithConfig(cfg.Engine).WithLogger(logger)

	rdb, closeRedis, err := openRedis(cfg.Redis, devRedis, logger)
	if err != nil {
		return err
	}
	defer closeRedis()
	if rdb != nil {
		builder.WithRedis(rdb)
	}

	switch cfg.AuditOutput {
	case "log":
		builder.WithAuditSink(staffauth.NewLoggerSink(logger))
	case "stderr":
		builder.WithAuditSink(staffauth.NewJSONWriterSink(os.Stderr))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer engine.Close()

	opts := web.Options{
		Engine:         engine,
		Logger:         logger,
		SecureCookie:   cfg.SecureCookie,
		DisableMetrics: !cfg.Prometheus,
	}
	if rdb != nil {
		opts.Health = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if cfg.OTel {
		h, shutdown, err := otelHandler(engine)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer shutdown()
		opts.Mount = map[string]http.Handler{"/debug/otel-metrics": h}
	}

	srv, err := web.New(opts)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openRedis connects to the configured Redis, or starts miniredis when
// dev is set. Both empty means in-memory sessions.
func openRedis(cfg config.RedisConfig, dev bool, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.Addr
	var mr *miniredis.Miniredis
	if dev {
		var err error
		if mr, err = miniredis.Run(); err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		addr = mr.Addr()
		logger.Warn("using in-process miniredis; sessions are lost on exit", "addr", addr)
	}
	if addr == "" {
		logger.Info("no redis configured; sessions are kept in memory")
		return nil, func() {}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}

// otelHandler registers the engine's instruments with an SDK meter
// provider and serves on-demand collections as JSON.
func otelHandler(engine *staffauth.Engine) (http.Handler, func(), error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	exporter, err := otelexport.New(provider.Meter("github.com/skvrent/staffauth"), engine)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, nil, err
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(r.Context(), &rm); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rm.ScopeMetrics)
	})
	return h, func() {
		_ = exporter.Close()
		_ = provider.Shutdown(context.Background())
	}, nil
}
