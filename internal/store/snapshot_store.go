package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/vbonduro/mensabot/internal/domain"
)

const snapshotTable = "menu_snapshots"

var snapshotColumns = []string{"run_id", "fetched_at", "menus", "degraded"}

type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	menus, err := json.Marshal(snap.Menus)
	if err != nil {
		return fmt.Errorf("failed to encode menus: %w", err)
	}

	query, args, err := sq.Insert(snapshotTable).
		Columns("run_id", "fetched_at", "menus", "active_menus", "extracted", "degraded").
		Values(snap.RunID, snap.FetchedAt.UTC(), string(menus), snap.Menus.ActiveMenus(), snap.Menus.HasExtracted(), snap.Degraded).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recently saved snapshot, or nil when none exist.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query, args, err := sq.Select(snapshotColumns...).
		From(snapshotTable).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snap, nil
}

// List returns up to limit snapshots, newest first. Only snapshots that carry
// at least one extracted menu are returned when extractedOnly is set.
func (s *SnapshotStore) List(ctx context.Context, limit uint64, extractedOnly bool) ([]*domain.Snapshot, error) {
	b := sq.Select(snapshotColumns...).From(snapshotTable).OrderBy("id DESC")
	if extractedOnly {
		b = b.Where(sq.Eq{"extracted": true})
	}
	if limit > 0 {
		b = b.Limit(limit)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var snaps []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}

// DeleteBefore removes snapshots fetched before t and reports how many went.
func (s *SnapshotStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	query, args, err := sq.Delete(snapshotTable).
		Where(sq.Lt{"fetched_at": t.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*domain.Snapshot, error) {
	var (
		snap  domain.Snapshot
		menus string
	)
	if err := row.Scan(&snap.RunID, &snap.FetchedAt, &menus, &snap.Degraded); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(menus), &snap.Menus); err != nil {
		return nil, fmt.Errorf("failed to decode menus for run %s: %w", snap.RunID, err)
	}
	return &snap, nil
}
