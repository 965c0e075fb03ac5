package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/bookflow"
	"github.com/aretw0/bookflow/internal/config"
	"github.com/aretw0/bookflow/pkg/adapters/llm"
	"github.com/aretw0/bookflow/pkg/adapters/memory"
	"github.com/aretw0/bookflow/pkg/adapters/redis"
	"github.com/aretw0/bookflow/pkg/adapters/sqlite"
	"github.com/aretw0/bookflow/pkg/catalog"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/observability"
	"github.com/aretw0/bookflow/pkg/persistence/middleware"
	"github.com/aretw0/bookflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Resources is an engine plus everything it holds open.
type Resources struct {
	Engine   *bookflow.Engine
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases backends in reverse order of creation.
func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// createEngine initializes a Bookflow engine from cfg: store, session backend,
// optional Redis lock and LLM generator, with logging and metrics hooks attached.
func createEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *Resources, err error) {
	res := &Resources{Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			res.Close() //nolint:errcheck
		}
	}()

	store, err := openStore(ctx, cfg.Store, res)
	if err != nil {
		return nil, err
	}

	sessions, locker, err := openSessionStore(ctx, cfg, res)
	if err != nil {
		return nil, err
	}

	res.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(res.Registry)

	opts := []bookflow.Option{
		bookflow.WithLogger(logger),
		bookflow.WithStore(store),
		bookflow.WithSessionStore(sessions),
		bookflow.WithSessionTTL(cfg.Session.TTL),
		bookflow.WithHistoryLimit(cfg.Session.HistoryLimit),
		bookflow.WithDefaultQuantity(cfg.Engine.DefaultQuantity),
		bookflow.WithSearchLimit(cfg.Engine.SearchLimit),
		bookflow.WithMaxInputSize(cfg.Engine.MaxInputSize),
		bookflow.WithLifecycleHooks(metrics.Hooks()),
		bookflow.WithLifecycleHooks(observability.LoggingHooks(logger)),
	}
	if locker != nil {
		opts = append(opts, bookflow.WithLocker(locker))
	}
	if cfg.LLM.Provider != "" {
		gen, err := llm.NewFromConfig(llm.Config{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			BaseURL:  cfg.LLM.BaseURL,
			APIKey:   cfg.LLM.APIKey,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, bookflow.WithGenerator(gen, cfg.LLM.Timeout))
		logger.Info("Generated replies enabled", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	}

	engine, err := bookflow.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	res.Engine = engine

	metrics.TrackActiveSessions(func() float64 {
		ids, err := engine.Sessions().List(context.Background())
		if err != nil {
			return 0
		}
		return float64(len(ids))
	})
	return res, nil
}

func seedBooks(cfg config.StoreConfig) ([]domain.Book, error) {
	if cfg.SeedFile != "" {
		return catalog.LoadFile(cfg.SeedFile)
	}
	return catalog.Default(), nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, res *Resources) (ports.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.OpenMigrated(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, store.Close)
		if !cfg.Seed {
			return store, nil
		}
		// An existing catalog keeps its stock levels.
		n, err := store.BookCount(ctx)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			books, err := seedBooks(cfg)
			if err != nil {
				return nil, err
			}
			if err := store.Seed(ctx, books); err != nil {
				return nil, err
			}
		}
		return store, nil
	default:
		store := memory.NewCatalog()
		if cfg.Seed {
			books, err := seedBooks(cfg)
			if err != nil {
				return nil, err
			}
			if err := store.Seed(ctx, books); err != nil {
				return nil, err
			}
		}
		return store, nil
	}
}

func openSessionStore(ctx context.Context, cfg config.Config, res *Resources) (ports.SessionStore, ports.DistributedLocker, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
	)
	switch cfg.Session.Backend {
	case "redis":
		rs, err := redis.NewFromURL(cfg.Redis.URL,
			redis.WithTTL(cfg.Session.TTL),
			redis.WithPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, err
		}
		res.closers = append(res.closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		store = rs
		if cfg.Redis.Lock {
			locker = redis.NewLocker(rs.Client(), cfg.Redis.Prefix)
		}
	default:
		store = memory.NewStore()
	}

	if len(cfg.Session.Redact) > 0 {
		redact, err := middleware.NewRedactionMiddleware(cfg.Session.Redact)
		if err != nil {
			return nil, nil, err
		}
		store = redact(store)
	}
	return store, locker, nil
}
