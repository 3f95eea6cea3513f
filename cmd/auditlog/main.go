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

	"golang.org/x/sync/errgroup"

	"zerotrust/internal/auditlog"
	"zerotrust/internal/platform/config"
	"zerotrust/internal/platform/httpserver"
	"zerotrust/internal/platform/logger"
	httptransport "zerotrust/internal/transport/http"
)

// main runs the append-only audit log that the gateway posts records to.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.Error("audit log stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := auditlog.NewFileStore(cfg.AuditLog.File)
	router := httptransport.NewRouter("auditlog", log,
		[]httptransport.Registrar{auditlog.NewHandler(store, log)},
		httptransport.WithCORS(cfg.Server.CORSAllowedOrigins),
	)
	srv := httpserver.New(cfg.AuditLog.Addr, router)

	log.Info("starting audit log", "addr", cfg.AuditLog.Addr, "file", store.Path())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
