package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/efs-sdk/accessmanager/internal/api"
	"github.com/efs-sdk/accessmanager/internal/api/middleware"
	"github.com/efs-sdk/accessmanager/internal/audit"
	"github.com/efs-sdk/accessmanager/internal/authz"
	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/events"
	"github.com/efs-sdk/accessmanager/internal/issuers"
	"github.com/efs-sdk/accessmanager/internal/logging"
	"github.com/efs-sdk/accessmanager/internal/metrics"
	"github.com/efs-sdk/accessmanager/internal/orgmanager"
	"github.com/efs-sdk/accessmanager/internal/providers"
	"github.com/efs-sdk/accessmanager/internal/service"
	"github.com/efs-sdk/accessmanager/internal/store"
	"github.com/efs-sdk/accessmanager/internal/tasks"
)

const (
	shutdownTimeout = 10 * time.Second

	cacheSweepTask      = "cache-sweep"
	rateLimitPruneTask  = "ratelimit-prune"
	rateLimitPruneEvery = time.Minute
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the accessmanager server",
	Long: `Starts the HTTP api. Tokens are signed by the configured storage backend,
permissions are checked against the organization manager and commits are
published to Kafka (or only logged when no brokers are configured).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	metrics.Init()

	log.Info().Msg("Initializing issuers...")
	issRegistry, err := issuers.BuildRegistry(ctx, cfg.Issuers)
	if err != nil {
		return fmt.Errorf("building issuer registry: %w", err)
	}
	log.Info().Msgf("Loaded %d issuer(s)", issRegistry.Len())

	log.Info().Msgf("Initializing %s storage backend...", cfg.Storage.Type)
	backend, err := providers.Build(cfg.Storage, cfg.Token)
	if err != nil {
		return fmt.Errorf("building storage backend: %w", err)
	}

	auditor, err := audit.New(cfg.Audit)
	if err != nil {
		return fmt.Errorf("creating auditor: %w", err)
	}
	defer func() {
		if err := auditor.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close auditor")
		}
	}()

	sink := events.NewSink(cfg.Events.Kafka.Brokers, log.Logger)
	publisher := events.NewAsyncPublisher(sink, cfg.Events.Workers, cfg.Events.QueueSize)

	cache := store.NewTokenCache(cfg.Cache.BufferDuration())
	svc := service.NewAccessService(backend.Resolver, backend.Signer, cache, publisher, auditor, cfg.Events.Kafka.Topic)

	directory := orgmanager.New(cfg.OrganizationManager.OrganizationEndpoint, cfg.OrganizationManager.SpaceEndpoint, cfg.OrganizationManager.Timeout)
	gateway := authz.NewGateway(directory)

	taskManager := tasks.NewManager()
	taskManager.Register(cacheSweepTask, cfg.Cache.SweepInterval, svc.SweepCache)

	opts := []api.Option{
		api.WithAdminSigningKey([]byte(cfg.Admin.SigningKey)),
	}
	if q, ok := auditor.(core.AuditQuerier); ok {
		opts = append(opts, api.WithAuditQuerier(q))
	}
	if cfg.RateLimit.PerSecond > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
		taskManager.Register(rateLimitPruneTask, rateLimitPruneEvery, func(_ context.Context, logger logging.InternalLogger) error {
			logger.Debug("pruned %d idle client(s)", limiter.Cleanup(time.Now()))
			return nil
		})
		opts = append(opts, api.WithRateLimiter(limiter))
	}

	srv := api.NewServer(svc, gateway, issRegistry, taskManager, opts...)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("Starting server on %s...", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server crashed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
		taskManager.Stop()
		if err := publisher.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("closing publisher: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f.bindConfigFlag(serveCmd.Flags())
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (overrides server.addr)")
	_ = serveCmd.MarkFlagRequired("config")
}
