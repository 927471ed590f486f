package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pace/internal/model"
)

func seedBackupData(t *testing.T, store *SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveSchedule(ctx, &model.Schedule{UserID: "u1", Year: 2025, Weekdays: model.MondayToFriday}))
	require.NoError(t, store.SaveField(ctx, &model.Field{FieldName: "a", Kind: model.KindGoal, IsEditable: true}))
	require.NoError(t, store.CreateTransaction(ctx, &model.Transaction{
		UserID: "u1", Commission: 60, PendingDate: model.Date(2025, time.April, 21),
	}))
}

func TestBackupManager_CreateAndList(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	seedBackupData(t, store)

	bm, err := store.NewBackupManager()
	require.NoError(t, err)
	assert.DirExists(t, bm.Dir())

	info, err := bm.Create(ctx, "before-import", "manual backup")
	require.NoError(t, err)
	assert.Equal(t, "before-import", info.ID)
	assert.Equal(t, "manual backup", info.Description)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Positive(t, info.FileSize)
	assert.Equal(t, 1, info.RowCounts["user_schedule"])
	assert.Equal(t, 1, info.RowCounts["fields"])
	assert.Equal(t, 1, info.RowCounts["transactions"])
	assert.False(t, info.IsAuto)
	assert.FileExists(t, filepath.Join(bm.Dir(), "before-import.db"))

	_, err = bm.Create(ctx, "before-import", "again")
	require.ErrorIs(t, err, ErrBackupExists)

	generated, err := bm.Create(ctx, "", "")
	require.NoError(t, err)
	assert.Contains(t, generated.ID, "backup-")

	backups, err := bm.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.False(t, backups[0].CreatedAt.Before(backups[1].CreatedAt), "newest first")

	got, err := bm.Get(ctx, "before-import")
	require.NoError(t, err)
	assert.Equal(t, "manual backup", got.Description)

	var recorded int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM backup_metadata`).Scan(&recorded))
	assert.Equal(t, 2, recorded)
}

func TestBackupManager_InvalidIDs(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	bm, err := store.NewBackupManager()
	require.NoError(t, err)

	for _, id := range []string{"../escape", "a/b", `a\b`, "it's", "x;y"} {
		t.Run(id, func(t *testing.T) {
			_, err := bm.Create(ctx, id, "")
			require.ErrorIs(t, err, ErrInvalidBackupID)
			require.ErrorIs(t, bm.Delete(ctx, id), ErrInvalidBackupID)
			require.ErrorIs(t, bm.Restore(ctx, id), ErrInvalidBackupID)
		})
	}
}

func TestBackupManager_Delete(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	bm, err := store.NewBackupManager()
	require.NoError(t, err)

	_, err = bm.Create(ctx, "snap", "")
	require.NoError(t, err)
	require.NoError(t, bm.Delete(ctx, "snap"))

	backups, err := bm.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups)

	require.ErrorIs(t, bm.Delete(ctx, "snap"), ErrBackupNotFound)
	_, err = bm.Get(ctx, "snap")
	require.ErrorIs(t, err, ErrBackupNotFound)
}

func TestBackupManager_AutoBackupPrunes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	bm, err := store.NewBackupManager()
	require.NoError(t, err)

	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	bm.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	_, err = bm.Create(ctx, "manual", "kept")
	require.NoError(t, err)

	for i := 0; i < MaxAutoBackups+2; i++ {
		info, err := bm.AutoBackup(ctx, fmt.Sprintf("reset%d", i))
		require.NoError(t, err)
		assert.True(t, info.IsAuto)
	}

	backups, err := bm.List(ctx)
	require.NoError(t, err)

	auto := 0
	for _, b := range backups {
		if b.IsAuto {
			auto++
		}
	}
	assert.Equal(t, MaxAutoBackups, auto)
	assert.Len(t, backups, MaxAutoBackups+1, "manual backups are never pruned")
	assert.Contains(t, backups[0].ID, "reset6")
}

func TestBackupManager_Restore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pace.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	seedBackupData(t, store)

	bm, err := store.NewBackupManager()
	require.NoError(t, err)
	_, err = bm.Create(ctx, "good", "")
	require.NoError(t, err)

	require.NoError(t, store.DeleteSchedule(ctx, "u1", 2025))
	require.NoError(t, bm.Restore(ctx, "good"))

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	sched, err := reopened.GetSchedule(ctx, "u1", 2025)
	require.NoError(t, err)
	assert.Equal(t, model.MondayToFriday, sched.Weekdays)

	_, err = os.Stat(dbPath + ".restore-backup")
	assert.True(t, os.IsNotExist(err), "safety copy should be removed")
}

func TestBackupManager_RestoreErrors(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	bm, err := store.NewBackupManager()
	require.NoError(t, err)

	require.ErrorIs(t, bm.Restore(ctx, "missing"), ErrBackupNotFound)

	corrupt := filepath.Join(bm.Dir(), "corrupt.db")
	require.NoError(t, os.WriteFile(corrupt, []byte("definitely not sqlite"), 0600))
	require.ErrorIs(t, bm.Restore(ctx, "corrupt"), ErrBackupCorrupted)
}

func TestNewBackupManager_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.NewBackupManager()
	require.ErrorIs(t, err, ErrInMemoryDatabase)
}
