package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/guestlist"
	"github.com/hyperjump/nikah/internal/metrics"
	"github.com/hyperjump/nikah/internal/ratelimit"
	"github.com/hyperjump/nikah/internal/rsvp"
	"github.com/hyperjump/nikah/internal/search"
	"github.com/hyperjump/nikah/internal/storage"
	"github.com/hyperjump/nikah/pkg/utils"
	"go.uber.org/zap"
)

const quotaSweepInterval = time.Hour

// Components holds initialized services.
type Components struct {
	Storage *storage.SQLiteStorage
	Loader  *guestlist.Loader
	Limiter *ratelimit.Limiter
	Engine  *search.Engine
	RSVP    *rsvp.Handler
	Metrics *metrics.Metrics

	memoryQuota *ratelimit.MemoryStore
	redisQuota  *ratelimit.RedisStore
	quotaWindow time.Duration
	logger      *zap.Logger
}

// Close releases the stores.
func (c *Components) Close() {
	if c.redisQuota != nil {
		_ = c.redisQuota.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// ReloadGuestList rebuilds the directory after the guest list file at path changed.
// The current snapshot is expired first; after a failed rebuild requests report SOURCE_UNAVAILABLE.
func (c *Components) ReloadGuestList(ctx context.Context, path string) {
	c.Loader.Invalidate()
	if _, err := c.Loader.Refresh(ctx); err != nil {
		c.logger.Warn("Guest list refresh after change failed", zap.String("path", path), zap.Error(err))
	}
}

// RunMaintenance drops expired quota windows until ctx is done.
func (c *Components) RunMaintenance(ctx context.Context) {
	if c.Limiter == nil {
		return
	}
	if c.memoryQuota != nil {
		c.memoryQuota.RunSweeper(ctx, quotaSweepInterval, c.quotaWindow)
		return
	}
	if c.redisQuota != nil {
		// Redis expires quota keys itself.
		return
	}
	ticker := time.NewTicker(quotaSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := c.Storage.PurgeQuotas(ctx, now.Add(-c.quotaWindow))
			if err != nil {
				c.logger.Warn("Purge quota windows failed", zap.Error(err))
				continue
			}
			if n > 0 {
				c.logger.Debug("Purged quota windows", zap.Int64("rows", n))
			}
		}
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	logger = utils.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store, Metrics: metrics.New(), logger: logger}

	source, err := guestlist.NewSource(&cfg.Source)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize guest list source: %w", err)
	}
	c.Loader = guestlist.NewLoader(source, &cfg.Source,
		guestlist.WithLogger(logger),
		guestlist.WithRefreshHook(func(changed bool, elapsed time.Duration, err error) {
			c.Metrics.ObserveRefresh(changed, elapsed, err)
			if err == nil {
				c.Metrics.SetDirectorySize(c.Loader.Status().Guests)
			}
		}),
	)

	engineOpts := []search.Option{search.WithLogger(logger), search.WithMetrics(c.Metrics)}
	if cfg.RateLimit.EnabledOrDefault() {
		var quota ratelimit.Store
		switch cfg.RateLimit.Backend {
		case "memory":
			c.memoryQuota = ratelimit.NewMemoryStore()
			quota = c.memoryQuota
		case "redis":
			c.redisQuota, err = ratelimit.NewRedisStore(ctx, &cfg.RateLimit)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			quota = c.redisQuota
		default:
			quota = store
		}
		policy := ratelimit.PolicyFromConfig(&cfg.RateLimit)
		c.quotaWindow = policy.Window
		c.Limiter = ratelimit.New(quota, policy,
			ratelimit.WithLogger(logger),
			ratelimit.WithMetrics(c.Metrics),
		)
		engineOpts = append(engineOpts, search.WithLimiter(c.Limiter))
		logger.Info("search quota enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.Int("max_searches", policy.MaxSearches),
			zap.Duration("window", policy.Window),
		)
	}

	c.Engine = search.NewEngine(c.Loader, engineOpts...)
	c.RSVP = rsvp.NewHandler(c.Loader, store,
		rsvp.WithMessages(rsvp.MessagesFromConfig(&cfg.Messages)),
		rsvp.WithLogger(logger),
		rsvp.WithMetrics(c.Metrics),
	)
	return c, nil
}
