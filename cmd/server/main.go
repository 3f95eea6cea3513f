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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"zerotrust/internal/claims"
	"zerotrust/internal/executor"
	"zerotrust/internal/gateway"
	"zerotrust/internal/gateway/handler"
	"zerotrust/internal/platform/config"
	"zerotrust/internal/platform/httpserver"
	"zerotrust/internal/platform/kafka"
	"zerotrust/internal/platform/logger"
	"zerotrust/internal/platform/metrics"
	"zerotrust/internal/platform/redis"
	"zerotrust/internal/policy"
	"zerotrust/internal/resolver"
	httptransport "zerotrust/internal/transport/http"
	audit "zerotrust/pkg/platform/audit"
	"zerotrust/pkg/platform/audit/publisher"
	"zerotrust/pkg/platform/audit/sink"
	"zerotrust/pkg/platform/circuit"
)

// main wires the pipeline components, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.Error("gateway stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegisterer(reg)

	extractor, err := claims.NewFromConfig(cfg.Auth)
	if err != nil {
		return err
	}
	if !extractor.Verifying() {
		log.Warn("credential signatures are not verified; trusting the upstream front door")
	}

	policyClient, err := policy.New(cfg.Policy.URL,
		policy.WithTimeout(cfg.Policy.Timeout),
		policy.WithLogger(log),
		policy.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	sqlResolver, err := buildResolver(cfg.Oracle, log, m)
	if err != nil {
		return err
	}

	exec := executor.New(cfg.Databases,
		executor.WithLogger(log),
		executor.WithMetrics(m),
	)

	auditSink, closeSinks, err := buildAuditSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	pub := publisher.NewPublisher(auditSink,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithDeliveryTimeout(cfg.Audit.Timeout),
		publisher.WithCircuitBreaker(circuit.New("audit-sink")),
		publisher.WithLogger(log),
		publisher.WithMetrics(m),
	)

	svc, err := gateway.New(extractor, policyClient, sqlResolver, exec,
		gateway.WithLogger(log),
		gateway.WithAuditPublisher(pub),
		gateway.WithDatabaseIDs(cfg.Databases.IDs()),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter("gateway", log,
		[]httptransport.Registrar{handler.New(svc, log)},
		httptransport.WithMetrics(m, reg),
		httptransport.WithCORS(cfg.Server.CORSAllowedOrigins),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting gateway",
		"addr", cfg.Server.Addr,
		"databases", cfg.Databases.IDs(),
		"audit_sink", auditSink.Name(),
		"oracle_enabled", !cfg.Oracle.Disabled,
	)

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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	// Runs after the server stops accepting requests, draining queued
	// records before the sinks close.
	g.Go(func() error {
		return pub.Run(gctx)
	})
	return g.Wait()
}

func buildResolver(cfg config.Oracle, log *slog.Logger, m *metrics.Metrics) (*resolver.Resolver, error) {
	opts := []resolver.Option{
		resolver.WithLogger(log),
		resolver.WithMetrics(m),
	}
	if cfg.Disabled {
		log.Info("natural-language translation disabled; using pattern fallback only")
		return resolver.New(opts...), nil
	}

	oracle, err := resolver.NewOracleClient(cfg.URL, cfg.Model, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	breaker := circuit.New("oracle",
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithCooldown(cfg.Cooldown),
	)
	opts = append(opts, resolver.WithOracle(oracle), resolver.WithCircuitBreaker(breaker))
	return resolver.New(opts...), nil
}

// buildAuditSink fans out to every configured destination. The returned
// cleanup closes the mirror clients.
func buildAuditSink(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Sink, func(), error) {
	var (
		sinks   []audit.Sink
		closers []func()
	)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Audit.SinkURL != "" {
		sinks = append(sinks, sink.NewHTTPSink(cfg.Audit.SinkURL, &http.Client{Timeout: cfg.Audit.Timeout}))
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("audit redis mirror: %w", err)
	}
	if rdb != nil {
		sinks = append(sinks, sink.NewRedisSink(rdb, cfg.Redis.Stream))
		closers = append(closers, func() { _ = rdb.Close() })
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("audit kafka mirror: %w", err)
	}
	if producer != nil {
		sinks = append(sinks, sink.NewKafkaSink(producer, cfg.Kafka.Topic))
		closers = append(closers, producer.Close)
	}

	multi := sink.NewMulti(sinks...)
	if multi.Len() == 0 {
		log.Warn("no audit destination configured; records are discarded")
	}
	return multi, cleanup, nil
}
