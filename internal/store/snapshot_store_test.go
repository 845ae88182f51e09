package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mensabot/internal/db"
	"github.com/vbonduro/mensabot/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	d, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	return d
}

func table(menu string) domain.MenuTable {
	return domain.NewMenuTable(func(c domain.Cafeteria, m domain.MealType) string {
		return menu + " " + string(c) + " " + string(m)
	})
}

func TestSnapshotStoreLatestEmpty(t *testing.T) {
	s := NewSnapshotStore(openTestDB(t))

	snap, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotStoreSaveAndLatest(t *testing.T) {
	s := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 13, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, &domain.Snapshot{RunID: "run-1", FetchedAt: base, Menus: table("old")}))
	require.NoError(t, s.Save(ctx, &domain.Snapshot{RunID: "run-2", FetchedAt: base.Add(24 * time.Hour), Menus: table("new")}))

	snap, err := s.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "run-2", snap.RunID)
	assert.True(t, base.Add(24*time.Hour).Equal(snap.FetchedAt))

	got, ok := snap.Menus.Get(domain.Castelfidardo, domain.Cena)
	require.True(t, ok)
	assert.Equal(t, "new Castelfidardo cena", got)
	assert.True(t, snap.Menus.Complete())
}

func TestSnapshotStoreDegraded(t *testing.T) {
	s := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 13, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, &domain.Snapshot{RunID: "real", FetchedAt: base, Menus: table("menu")}))
	require.NoError(t, s.Save(ctx, &domain.Snapshot{RunID: "fallback", FetchedAt: base.Add(time.Hour), Menus: table("canned"), Degraded: true}))

	snap, err := s.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "fallback", snap.RunID)
	assert.True(t, snap.Degraded)

	all, err := s.List(ctx, 0, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[1].Degraded)
}

func TestSnapshotStoreDuplicateRunID(t *testing.T) {
	s := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()

	snap := &domain.Snapshot{RunID: "run-1", FetchedAt: time.Now(), Menus: table("x")}
	require.NoError(t, s.Save(ctx, snap))
	assert.Error(t, s.Save(ctx, snap))
}

func TestSnapshotStoreList(t *testing.T) {
	s := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 10, 7, 0, 0, 0, time.UTC)

	unavailable := domain.NewMenuTable(func(_ domain.Cafeteria, m domain.MealType) string {
		return domain.NotAvailable(m)
	})
	require.NoError(t, s.Save(ctx, &domain.Snapshot{RunID: "a", FetchedAt: base, Menus: table("menu")}))
	require.NoError(t, s.Save(ctx, &domain.Snapshot{RunID: "b", FetchedAt: base.Add(time.Hour), Menus: unavailable}))
	require.NoError(t, s.Save(ctx, &domain.Snapshot{RunID: "c", FetchedAt: base.Add(2 * time.Hour), Menus: table("menu")}))

	all, err := s.List(ctx, 0, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].RunID)
	assert.Equal(t, "a", all[2].RunID)

	limited, err := s.List(ctx, 2, false)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	extracted, err := s.List(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, extracted, 2)
	assert.Equal(t, "c", extracted[0].RunID)
	assert.Equal(t, "a", extracted[1].RunID)
}

func TestSnapshotStoreDeleteBefore(t *testing.T) {
	s := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 7, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(ctx, &domain.Snapshot{RunID: id, FetchedAt: base.AddDate(0, 0, i), Menus: table("m")}))
	}

	n, err := s.DeleteBefore(ctx, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining, err := s.List(ctx, 0, false)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "c", remaining[0].RunID)
}
