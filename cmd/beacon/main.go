// Package main wires together the beacon service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tidemark/beacon/internal/api"
	"github.com/tidemark/beacon/internal/config"
	"github.com/tidemark/beacon/internal/logging"
	"github.com/tidemark/beacon/internal/metrics"
	"github.com/tidemark/beacon/internal/netguard"
	"github.com/tidemark/beacon/internal/ratelimit"
	"github.com/tidemark/beacon/internal/relay"
	"github.com/tidemark/beacon/internal/suggest"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	hub := relay.NewHub(cfg.PingInterval(), logger.Named("relay"))
	limiter := ratelimit.New(ratelimit.Config{
		Limit: cfg.RateLimit.RequestsPerMinute,
	}, logger.Named("ratelimit"))

	validator := netguard.NewValidator(nil)
	fetcher := suggest.NewFetcher(suggest.FetcherConfig{
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.Suggest.MaxBodyBytes,
		PerHostRPS:   cfg.Suggest.PerHostRPS,
		PerHostBurst: cfg.Suggest.PerHostBurst,
	})
	cache := suggest.NewCache(cfg.CacheTTL(), cfg.Suggest.CacheMaxEntries)
	suggester := suggest.NewService(validator, fetcher, cache, logger.Named("suggest"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(suggester, limiter, hub, cfg, logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go hub.Run(ctx)
	go limiter.Run(ctx)

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}
