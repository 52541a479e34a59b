// Package ratelimit caps searches per client over a rolling window.
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/metrics"
	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/pkg/utils"
)

// Store persists quota windows. UpdateQuota must apply fn atomically per client: two concurrent
// calls for the same client never both observe the same window.
type Store interface {
	UpdateQuota(ctx context.Context, clientID string, fn func(w models.QuotaWindow, found bool) models.QuotaWindow) (models.QuotaWindow, error)
	GetQuota(ctx context.Context, clientID string) (models.QuotaWindow, bool, error)
}

// Policy is the quota: at most MaxSearches accepted searches per Window.
type Policy struct {
	MaxSearches int
	Window      time.Duration
}

// DefaultPolicy allows 5 searches per 24 hours.
var DefaultPolicy = Policy{MaxSearches: 5, Window: 24 * time.Hour}

// PolicyFromConfig returns the policy in cfg, falling back to DefaultPolicy for unset fields.
func PolicyFromConfig(cfg *config.RateLimitConfig) Policy {
	p := DefaultPolicy
	if cfg.MaxSearches > 0 {
		p.MaxSearches = cfg.MaxSearches
	}
	if cfg.Window > 0 {
		p.Window = cfg.Window
	}
	return p
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetsAt  time.Time
	// Unknown is set when the store failed and the search was let through without counting.
	Unknown bool
}

// Limiter applies a Policy against a Store.
type Limiter struct {
	store   Store
	policy  Policy
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) { l.logger = utils.OrNop(logger) }
}

// WithMetrics records every decision.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// New creates a limiter.
func New(store Store, policy Policy, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		policy: policy,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the active policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// CheckAndConsume counts one search for clientID if the quota allows it.
// A window older than the policy window is reset first. Denied searches are not counted.
// Store failures let the search through; the quota is a courtesy throttle, not access control.
func (l *Limiter) CheckAndConsume(ctx context.Context, clientID string) Decision {
	now := l.now()
	allowed := false
	w, err := l.store.UpdateQuota(ctx, key(clientID), func(w models.QuotaWindow, found bool) models.QuotaWindow {
		allowed = false
		if !found || w.Expired(now, l.policy.Window) {
			w = models.QuotaWindow{Start: now}
		}
		if w.Count < l.policy.MaxSearches {
			w.Count++
			allowed = true
		}
		return w
	})
	if err != nil {
		l.logger.Warn("Quota store failed, allowing search", zap.String("client", clientID), zap.Error(err))
		l.metrics.ObserveQuota("error")
		return Decision{Allowed: true, Unknown: true}
	}

	d := l.decision(w, now)
	d.Allowed = allowed
	if allowed {
		l.metrics.ObserveQuota("allowed")
	} else {
		l.metrics.ObserveQuota("denied")
		l.logger.Info("Search quota exhausted", zap.String("client", clientID), zap.Time("resets_at", d.ResetsAt))
	}
	return d
}

// Refund gives back the search counted by d if its window is still the current one.
func (l *Limiter) Refund(ctx context.Context, clientID string, d Decision) {
	if !d.Allowed || d.Unknown {
		return
	}
	refunded := false
	_, err := l.store.UpdateQuota(ctx, key(clientID), func(w models.QuotaWindow, found bool) models.QuotaWindow {
		refunded = false
		if found && w.Count > 0 && w.Start.Add(l.policy.Window).Equal(d.ResetsAt) {
			w.Count--
			refunded = true
		}
		return w
	})
	if err != nil {
		l.logger.Warn("Quota refund failed", zap.String("client", clientID), zap.Error(err))
		return
	}
	if refunded {
		l.metrics.ObserveQuota("refunded")
	}
}

// Peek returns the current quota of clientID without consuming a search.
func (l *Limiter) Peek(ctx context.Context, clientID string) (Decision, error) {
	now := l.now()
	w, found, err := l.store.GetQuota(ctx, key(clientID))
	if err != nil {
		return Decision{}, err
	}
	if !found || w.Expired(now, l.policy.Window) {
		return Decision{Allowed: true, Remaining: l.policy.MaxSearches}, nil
	}
	d := l.decision(w, now)
	d.Allowed = d.Remaining > 0
	return d, nil
}

func (l *Limiter) decision(w models.QuotaWindow, now time.Time) Decision {
	remaining := l.policy.MaxSearches - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Remaining: remaining, ResetsAt: w.Start.Add(l.policy.Window)}
}

// Quota converts a decision to its client-facing form.
func (l *Limiter) Quota(d Decision) models.Quota {
	q := models.Quota{Limit: l.policy.MaxSearches, Remaining: d.Remaining}
	if !d.ResetsAt.IsZero() {
		resets := d.ResetsAt
		q.ResetsAt = &resets
	}
	return q
}

func key(clientID string) string {
	if clientID == "" {
		return "anonymous"
	}
	return clientID
}
