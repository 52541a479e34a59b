package guestlist

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/pkg/apperrors"
	"github.com/hyperjump/nikah/pkg/utils"
)

// Loader serves the current Directory, rebuilding it from the Source when the snapshot is
// older than the refresh interval. Concurrent rebuilds are collapsed into one fetch.
// A failed rebuild is reported as SOURCE_UNAVAILABLE; an expired snapshot is never served.
type Loader struct {
	source       Source
	builder      *Builder
	sheet        string
	ttl          time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
	onRefresh    func(changed bool, elapsed time.Duration, err error)

	group   singleflight.Group
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	dir      *Directory
	loadedAt time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = utils.OrNop(logger)
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
		l.builder.now = now
	}
}

// WithRefreshHook registers a callback invoked after every rebuild attempt.
func WithRefreshHook(fn func(changed bool, elapsed time.Duration, err error)) LoaderOption {
	return func(l *Loader) {
		l.onRefresh = fn
	}
}

// NewLoader creates a loader for source. A RefreshInterval <= 0 rebuilds on every request.
func NewLoader(source Source, cfg *config.SourceConfig, opts ...LoaderOption) *Loader {
	l := &Loader{
		source:       source,
		builder:      NewBuilder(cfg),
		sheet:        cfg.Sheet,
		ttl:          cfg.RefreshInterval,
		fetchTimeout: cfg.FetchTimeout,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	if l.fetchTimeout <= 0 {
		l.fetchTimeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Directory returns a fresh directory, rebuilding it if needed.
func (l *Loader) Directory(ctx context.Context) (*Directory, error) {
	if snap := l.current.Load(); snap != nil && l.fresh(snap) {
		return snap.dir, nil
	}
	return l.Refresh(ctx)
}

// Refresh fetches and rebuilds the directory regardless of age.
// The fetch runs detached from ctx so that one caller giving up does not fail the others
// waiting on the same rebuild.
func (l *Loader) Refresh(ctx context.Context) (*Directory, error) {
	ch := l.group.DoChan("refresh", func() (interface{}, error) {
		return l.rebuild()
	})
	select {
	case <-ctx.Done():
		return nil, apperrors.NewSourceUnavailable("guest list refresh interrupted", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Directory), nil
	}
}

// Invalidate marks the current snapshot as expired.
func (l *Loader) Invalidate() {
	if snap := l.current.Load(); snap != nil {
		l.current.CompareAndSwap(snap, &snapshot{dir: snap.dir})
	}
}

// Status describes the last successfully built snapshot.
type Status struct {
	Loaded       bool
	Fresh        bool
	Guests       int
	Families     int
	Degraded     int
	Discarded    int
	Fingerprint  string
	LoadedAt     time.Time
	BuiltAt      time.Time
	Source       string
	RefreshEvery time.Duration
}

// Status returns the state of the current snapshot without fetching.
func (l *Loader) Status() Status {
	st := Status{Source: l.source.String(), RefreshEvery: l.ttl}
	snap := l.current.Load()
	if snap == nil {
		return st
	}
	st.Loaded = true
	st.Fresh = l.fresh(snap)
	st.Guests = snap.dir.Len()
	st.Families = snap.dir.FamilyCount()
	st.Degraded = snap.dir.DegradedRows()
	st.Discarded = snap.dir.DiscardedRows()
	st.Fingerprint = snap.dir.Fingerprint()
	st.LoadedAt = snap.loadedAt
	st.BuiltAt = snap.dir.BuiltAt()
	return st
}

func (l *Loader) fresh(snap *snapshot) bool {
	if snap.loadedAt.IsZero() || l.ttl <= 0 {
		return false
	}
	return l.now().Sub(snap.loadedAt) < l.ttl
}

func (l *Loader) rebuild() (dir *Directory, err error) {
	start := l.now()
	changed := false
	defer func() {
		if l.onRefresh != nil {
			l.onRefresh(changed, l.now().Sub(start), err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), l.fetchTimeout)
	defer cancel()

	payload, err := l.source.Fetch(ctx)
	if err != nil {
		l.logger.Warn("Guest list fetch failed", zap.String("source", l.source.String()), zap.Error(err))
		return nil, apperrors.NewSourceUnavailable("guest list is unavailable", err)
	}

	fp := Fingerprint(payload.Data)
	if cur := l.current.Load(); cur != nil && cur.dir.Fingerprint() == fp {
		l.current.Store(&snapshot{dir: cur.dir, loadedAt: l.now()})
		l.logger.Debug("Guest list unchanged", zap.String("fingerprint", fp))
		return cur.dir, nil
	}

	table, err := Decode(payload.Format, payload.Data, l.sheet)
	if err != nil {
		l.logger.Warn("Guest list decode failed", zap.String("source", l.source.String()), zap.Error(err))
		return nil, apperrors.NewSourceUnavailable("guest list could not be read", err)
	}

	dir = l.builder.Build(table)
	dir.fingerprint = fp
	l.current.Store(&snapshot{dir: dir, loadedAt: l.now()})
	changed = true

	fields := []zap.Field{
		zap.Int("guests", dir.Len()),
		zap.Int("families", dir.FamilyCount()),
		zap.String("fingerprint", fp),
	}
	if dir.DegradedRows() > 0 {
		l.logger.Warn("Guest list has rows with unterminated quotes", append(fields, zap.Int("degraded", dir.DegradedRows()))...)
	} else {
		l.logger.Info("Guest list loaded", fields...)
	}
	return dir, nil
}
