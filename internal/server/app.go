// Package server builds the catalog application from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/api"
	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/clock/system"
	"github.com/JakeFAU/affiliate-catalog/internal/config"
	"github.com/JakeFAU/affiliate-catalog/internal/id/uuid"
	"github.com/JakeFAU/affiliate-catalog/internal/logging"
	"github.com/JakeFAU/affiliate-catalog/internal/metadata"
	collymeta "github.com/JakeFAU/affiliate-catalog/internal/metadata/colly"
	"github.com/JakeFAU/affiliate-catalog/internal/metadata/headless"
	"github.com/JakeFAU/affiliate-catalog/internal/metrics"
	memorypublisher "github.com/JakeFAU/affiliate-catalog/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/affiliate-catalog/internal/publisher/pubsub"
	"github.com/JakeFAU/affiliate-catalog/internal/ratelimit"
	memorystore "github.com/JakeFAU/affiliate-catalog/internal/storage/memory"
	pgstore "github.com/JakeFAU/affiliate-catalog/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	apiServer *api.Server

	store     catalog.ProductStore
	pgStore   *pgstore.ProductStore
	publisher catalog.Publisher
	pubsub    *gcppublisher.Publisher
	fetcher   catalog.MetadataFetcher
	headless  *headless.Provider
}

// Build creates the application's dependencies. Partially built resources are
// released when a later step fails.
func Build(ctx context.Context, cfg config.Config) (_ *App, err error) {
	logger, err := logging.NewWithOptions(logging.Options{
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.closeInfrastructure()
		}
	}()

	logger.Info("building application",
		zap.Int("port", cfg.Server.Port),
		zap.String("store_backend", cfg.Store.Backend),
		zap.Strings("metadata_providers", cfg.Metadata.Providers),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
	)

	clock := system.New()
	if err = app.setupStore(ctx, clock); err != nil {
		return nil, err
	}
	if err = app.setupPublisher(ctx); err != nil {
		return nil, err
	}
	if err = app.setupFetcher(); err != nil {
		return nil, err
	}

	deps := api.Deps{
		Store:     app.store,
		Fetcher:   app.fetcher,
		Publisher: app.publisher,
		Clock:     clock,
	}
	if app.pgStore != nil {
		deps.Ready = app.pgStore.Ping
	}
	app.apiServer = api.NewServer(deps, cfg, logger)
	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx is canceled.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown initiated")
	case serveErr = <-errCh:
		a.logger.Error("http server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if err := a.Close(); err != nil {
		return err
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

// Close releases infrastructure clients and flushes the logger.
func (a *App) Close() error {
	a.closeInfrastructure()
	a.logger.Info("shutdown complete")
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	return nil
}

func (a *App) closeInfrastructure() {
	if a.headless != nil {
		a.headless.Close()
		a.headless = nil
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
		a.pubsub = nil
	}
	if a.pgStore != nil {
		a.pgStore.Close()
		a.pgStore = nil
	}
}

func (a *App) setupStore(ctx context.Context, clock catalog.Clock) error {
	idGen := uuid.New()
	switch a.cfg.Store.Backend {
	case config.BackendPostgres:
		store, err := pgstore.NewProductStore(ctx, pgstore.ProductStoreConfig{
			DSN:             a.cfg.DB.DSN,
			Table:           a.cfg.DB.Table,
			MaxConns:        a.cfg.DB.MaxConns,
			MinConns:        a.cfg.DB.MinConns,
			MaxConnLifetime: a.cfg.DB.MaxConnLifetime,
		}, idGen, clock)
		if err != nil {
			return fmt.Errorf("product store init failed: %w", err)
		}
		a.pgStore = store
		if a.cfg.DB.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("product schema migration failed: %w", err)
			}
		}
		a.store = store
		a.logger.Info("using postgres product store", zap.String("table", a.cfg.DB.Table))
	default:
		a.store = memorystore.NewProductStore(idGen, clock)
		a.logger.Warn("using in-memory product store; products are lost on restart")
	}
	return nil
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, using in-memory publisher")
		a.publisher = memorypublisher.New()
		return nil
	}
	pub, err := gcppublisher.New(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.pubsub = pub
	a.publisher = pub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return nil
}

func (a *App) setupFetcher() error {
	limiter := ratelimit.New(ratelimit.Config{RPS: a.cfg.Metadata.RPS, Burst: a.cfg.Metadata.Burst})
	timeout := a.cfg.MetadataTimeout()
	logger := a.logger.Named("metadata")

	providers := make([]metadata.Provider, 0, len(a.cfg.Metadata.Providers))
	for _, name := range a.cfg.Metadata.Providers {
		switch name {
		case config.ProviderMicrolink:
			providers = append(providers, metadata.NewMicrolink(metadata.MicrolinkConfig{
				Endpoint: a.cfg.Metadata.Endpoint,
				APIKey:   a.cfg.Metadata.APIKey,
				Timeout:  timeout,
				Limiter:  limiter,
			}, logger.Named("microlink")))
		case config.ProviderOpenGraph:
			providers = append(providers, collymeta.New(collymeta.Config{
				UserAgent: a.cfg.Metadata.UserAgent,
				Timeout:   timeout,
				Limiter:   limiter,
			}, logger.Named("opengraph")))
		case config.ProviderHeadless:
			p, err := headless.New(headless.Config{
				MaxParallel:       a.cfg.Metadata.HeadlessMaxParallel,
				UserAgent:         a.cfg.Metadata.UserAgent,
				NavigationTimeout: timeout,
				Limiter:           limiter,
			}, logger.Named("headless"))
			if err != nil {
				return fmt.Errorf("headless provider init failed: %w", err)
			}
			a.headless = p
			providers = append(providers, p)
		default:
			return fmt.Errorf("unknown metadata provider %q", name)
		}
	}

	switch len(providers) {
	case 0:
		return errors.New("no metadata providers configured")
	case 1:
		a.fetcher = providers[0]
	default:
		chain, err := metadata.NewChain(logger, providers...)
		if err != nil {
			return fmt.Errorf("metadata chain init failed: %w", err)
		}
		a.fetcher = chain
	}
	a.logger.Info("metadata providers ready", zap.Strings("providers", a.cfg.Metadata.Providers))
	return nil
}
