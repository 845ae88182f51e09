// Package scheduler runs a job once a day at a fixed local time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Gate reports whether scheduled runs are currently allowed.
type Gate interface {
	UpdatesEnabled() bool
}

type Job func(ctx context.Context, trigger time.Time)

type Daily struct {
	hour, minute int
	loc          *time.Location
	gate         Gate
	logger       *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewDaily parses at as "HH:MM" in loc. gate may be nil.
func NewDaily(at string, loc *time.Location, gate Gate, logger *slog.Logger) (*Daily, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time %q: %w", at, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Daily{
		hour:   t.Hour(),
		minute: t.Minute(),
		loc:    loc,
		gate:   gate,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}, nil
}

// Next returns the first occurrence of the scheduled time strictly after t.
func (d *Daily) Next(t time.Time) time.Time {
	local := t.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

// Start blocks, running job at every occurrence until ctx is done or Stop is
// called. Runs are skipped while the gate is closed.
func (d *Daily) Start(ctx context.Context, job Job) error {
	if job == nil {
		return nil
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.cancel = nil
		d.mu.Unlock()
		cancel()
	}()

	for {
		next := d.Next(d.now())
		d.logger.Info("next scheduled menu update", "at", next)
		select {
		case <-ctx.Done():
			return nil
		case trigger := <-d.after(next.Sub(d.now())):
			if d.gate != nil && !d.gate.UpdatesEnabled() {
				d.logger.Info("scheduled updates paused, skipping run")
				continue
			}
			job(ctx, trigger)
		}
	}
}

// Stop ends a running Start.
func (d *Daily) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}
