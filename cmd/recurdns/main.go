// Command recurdns runs the recursive DNS resolver: a UDP server that
// answers client queries by iteratively walking the delegation chain from
// a root nameserver.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sereno-dns/recurdns/internal/adapters/repository"
	"github.com/sereno-dns/recurdns/internal/dns/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("recurdns failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	addr := getEnv("DNS_ADDR", "0.0.0.0:2053")
	rootNS := getEnv("ROOT_SERVER", server.RootServer)
	upstreamTimeout, err := time.ParseDuration(getEnv("UPSTREAM_TIMEOUT", "5s"))
	if err != nil {
		return fmt.Errorf("parse UPSTREAM_TIMEOUT: %w", err)
	}

	srv := server.NewServer(addr, logger)
	srv.RootNS = rootNS
	srv.UpstreamTimeout = upstreamTimeout

	if dbURL := os.Getenv("AUDIT_DATABASE_URL"); dbURL != "" {
		db, err := sql.Open("pgx", dbURL)
		if err != nil {
			return fmt.Errorf("open audit database: %w", err)
		}
		defer db.Close()

		auditRepo := repository.NewPostgresAuditRepository(db)
		if err := auditRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("prepare audit schema: %w", err)
		}
		srv.Audit = auditRepo
		logger.Info("audit logging enabled", "database", dbURL)
	}

	if metricsAddr := os.Getenv("METRICS_ADDR"); metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("metrics server starting", "addr", metricsAddr)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
