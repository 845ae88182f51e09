package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/vbonduro/mensabot/internal/domain"
	"github.com/vbonduro/mensabot/internal/menu"
	"github.com/vbonduro/mensabot/internal/session"
)

// menuFetcher is the subset of FetchService that MenuCache requires.
type menuFetcher interface {
	FetchMenus(ctx context.Context) domain.MenuTable
}

// snapshotRepository is the subset of store.SnapshotStore that MenuCache
// requires.
type snapshotRepository interface {
	Save(ctx context.Context, snap *domain.Snapshot) error
	Latest(ctx context.Context) (*domain.Snapshot, error)
	List(ctx context.Context, limit uint64, extractedOnly bool) ([]*domain.Snapshot, error)
}

type CacheOptions struct {
	// Timeout bounds a whole FetchDailyMenus call, retries included.
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
	Location   *time.Location
	Now        func() time.Time
	Sleep      session.SleepFunc
}

func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		Timeout:    10 * time.Minute,
		Attempts:   3,
		RetryDelay: 30 * time.Second,
	}
}

// MenuCache holds the current menu table and refreshes it from the pipeline.
type MenuCache struct {
	fetcher menuFetcher
	store   snapshotRepository
	opts    CacheOptions
	logger  *slog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	menus     domain.MenuTable
	lastFetch time.Time
	lastRunID string
}

// NewMenuCache builds a MenuCache. store may be nil, in which case nothing is
// persisted.
func NewMenuCache(fetcher menuFetcher, store snapshotRepository, opts CacheOptions, logger *slog.Logger) *MenuCache {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCacheOptions().Timeout
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = session.Sleep
	}
	return &MenuCache{fetcher: fetcher, store: store, opts: opts, logger: logger}
}

// FetchDailyMenus refreshes the table. Concurrent callers share one run,
// which is detached from any single caller: a caller whose ctx ends gets the
// current table back while the run carries on for the others.
func (c *MenuCache) FetchDailyMenus(ctx context.Context) domain.MenuTable {
	ch := c.group.DoChan("daily", func() (interface{}, error) {
		return c.refresh(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return res.Val.(domain.MenuTable).Clone()
	case <-ctx.Done():
		return c.Snapshot()
	}
}

func (c *MenuCache) refresh(ctx context.Context) domain.MenuTable {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	started := c.opts.Now()
	logger.Info("fetching daily menus")

	var table domain.MenuTable
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		table = c.fetcher.FetchMenus(ctx)
		if table.HasExtracted() {
			break
		}
		if attempt == c.opts.Attempts {
			break
		}
		logger.Warn("no menus extracted, retrying", "attempt", attempt, "delay", c.opts.RetryDelay)
		if err := c.opts.Sleep(ctx, c.opts.RetryDelay); err != nil {
			logger.Warn("retry wait interrupted", "error", err)
			break
		}
	}
	interrupted := ctx.Err() != nil

	if !table.HasExtracted() {
		logger.Warn("all fetch attempts failed, serving placeholder menus")
		table = menu.PlaceholderTable(started.In(c.opts.Location), "")
	}
	degraded := !menu.HasStoryMenus(table)

	if degraded {
		if current, ok := c.keepCurrent(started); ok {
			logger.Warn("refresh produced no menus, keeping current table", "interrupted", interrupted)
			return current
		}
	}

	c.mu.Lock()
	c.menus = table
	c.lastFetch = started
	c.lastRunID = runID
	c.mu.Unlock()

	if c.store != nil && !interrupted {
		// The fetch deadline may already be spent; the write gets its own.
		saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer saveCancel()
		snap := &domain.Snapshot{RunID: runID, FetchedAt: started, Menus: table.Clone(), Degraded: degraded}
		if err := c.store.Save(saveCtx, snap); err != nil {
			logger.Error("failed to save snapshot", "error", err)
		}
	}

	logger.Info("daily menus ready", "active_menus", table.ActiveMenus(), "degraded", degraded, "elapsed", c.opts.Now().Sub(started))
	return table
}

// keepCurrent returns the current table when it holds story menus fetched on
// the same day as now.
func (c *MenuCache) keepCurrent(now time.Time) (domain.MenuTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.menus == nil || !menu.HasStoryMenus(c.menus) || !c.sameDay(c.lastFetch, now) {
		return nil, false
	}
	return c.menus.Clone(), true
}

func (c *MenuCache) sameDay(a, b time.Time) bool {
	a, b = a.In(c.opts.Location), b.In(c.opts.Location)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// GetMenu returns one cell, fetching first when nothing has been loaded yet.
// Legacy cafeteria names are accepted. An empty meal means pranzo.
func (c *MenuCache) GetMenu(ctx context.Context, name string, meal domain.MealType) string {
	if meal == "" {
		meal = domain.DefaultMealType
	}
	cafe, ok := domain.ResolveCafeteria(name)
	if !ok {
		return domain.MenuNotAvailable
	}

	c.mu.RLock()
	empty := len(c.menus) == 0
	c.mu.RUnlock()
	if empty {
		c.FetchDailyMenus(ctx)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.menus.Get(cafe, meal)
	if !ok || text == "" {
		return domain.MenuNotAvailable
	}
	return text
}

// Snapshot returns a copy of the current table, nil before the first fetch.
func (c *MenuCache) Snapshot() domain.MenuTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.menus == nil {
		return nil
	}
	return c.menus.Clone()
}

// LastFetch reports when the current table was fetched and by which run.
func (c *MenuCache) LastFetch() (time.Time, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch, c.lastRunID
}

func (c *MenuCache) ActiveMenus() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.menus.ActiveMenus()
}

// Warm loads the latest persisted table if it was fetched today and holds
// menus read from stories. It reports whether a table was loaded.
func (c *MenuCache) Warm(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	snap, err := c.store.Latest(ctx)
	if err != nil {
		return false, err
	}
	if snap == nil || !snap.Menus.Complete() {
		return false, nil
	}
	if snap.Degraded {
		c.logger.Info("latest snapshot is degraded", "run_id", snap.RunID, "fetched_at", snap.FetchedAt)
		return false, nil
	}
	if !c.sameDay(snap.FetchedAt, c.opts.Now()) {
		c.logger.Info("latest snapshot is stale", "run_id", snap.RunID, "fetched_at", snap.FetchedAt)
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.menus = snap.Menus
	c.lastFetch = snap.FetchedAt
	c.lastRunID = snap.RunID
	c.logger.Info("loaded menus from snapshot", "run_id", snap.RunID)
	return true, nil
}

// History lists recent snapshots, newest first.
func (c *MenuCache) History(ctx context.Context, limit uint64) ([]*domain.Snapshot, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.List(ctx, limit, false)
}
