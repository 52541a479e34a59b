// Package search resolves guest queries against the directory and expands matches to whole families.
package search

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/nikah/internal/guestlist"
	"github.com/hyperjump/nikah/internal/metrics"
	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/internal/ratelimit"
	"github.com/hyperjump/nikah/internal/script"
	"github.com/hyperjump/nikah/pkg/apperrors"
	"github.com/hyperjump/nikah/pkg/utils"
)

// DirectoryProvider returns the current guest directory.
type DirectoryProvider interface {
	Directory(ctx context.Context) (*guestlist.Directory, error)
}

// Engine runs bilingual guest search.
type Engine struct {
	provider DirectoryProvider
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimiter gates searches behind a per-client quota. Without it searches are unlimited.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = utils.OrNop(logger) }
}

// WithMetrics records search outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a search engine over provider.
func NewEngine(provider DirectoryProvider, opts ...Option) *Engine {
	e := &Engine{provider: provider, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search resolves query to matching guests plus every member of their families, in sheet order.
//
// A blank query returns an empty English result and does not count against the quota.
// A search over quota fails with RATE_LIMITED; an unavailable guest list fails with
// SOURCE_UNAVAILABLE and the search is refunded. No match is an empty result, not an error.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResult, error) {
	startTime := time.Now()
	text := query.Trimmed()
	lang := script.Detect(text)

	if query.Blank() {
		return &models.SearchResult{Guests: []models.Guest{}, SearchLanguage: models.LanguageEnglish}, nil
	}

	var (
		remaining *int
		quota     ratelimit.Decision
	)
	if e.limiter != nil {
		quota = e.limiter.CheckAndConsume(ctx, query.ClientID)
		if !quota.Allowed {
			e.metrics.ObserveSearch(string(lang), "rate_limited", 0, time.Since(startTime))
			return nil, apperrors.NewRateLimited("daily search limit reached")
		}
		if !quota.Unknown {
			remaining = &quota.Remaining
		}
	}

	dir, err := e.provider.Directory(ctx)
	if err != nil {
		e.metrics.ObserveSearch(string(lang), "error", 0, time.Since(startTime))
		if e.limiter != nil {
			e.limiter.Refund(ctx, query.ClientID, quota)
		}
		if apperrors.KindOf(err) == apperrors.KindInternal {
			err = apperrors.NewSourceUnavailable("guest list is unavailable", err)
		}
		return nil, err
	}

	guests := Resolve(dir, lang, text)
	result := &models.SearchResult{
		Guests:            guests,
		SearchLanguage:    lang,
		RemainingSearches: remaining,
	}

	outcome := "ok"
	if len(guests) == 0 {
		outcome = "empty"
	}
	e.metrics.ObserveSearch(string(lang), outcome, len(guests), time.Since(startTime))
	e.logger.Debug("Search resolved",
		zap.String("language", string(lang)),
		zap.Int("guests", len(guests)),
		zap.Strings("families", result.Families()),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return result, nil
}

// Resolve matches text against the names of lang in dir and closes the result under family
// membership. Guests are deduplicated and returned in sheet order.
func Resolve(dir *guestlist.Directory, lang models.Language, text string) []models.Guest {
	matched := dir.Match(lang, script.Key(text))
	rows := make(map[int]struct{}, len(matched))
	for _, row := range matched {
		rows[row] = struct{}{}
	}
	for _, row := range matched {
		g, ok := dir.Guest(row)
		if !ok || !g.Grouped() {
			continue
		}
		for _, member := range dir.Family(g.FamilyGroup) {
			rows[member] = struct{}{}
		}
	}

	ordered := make([]int, 0, len(rows))
	for row := range rows {
		ordered = append(ordered, row)
	}
	// Row indexes increase down the sheet, so sorting restores sheet order.
	sort.Ints(ordered)

	guests := make([]models.Guest, 0, len(ordered))
	for _, row := range ordered {
		if g, ok := dir.Guest(row); ok {
			guests = append(guests, g)
		}
	}
	return guests
}
