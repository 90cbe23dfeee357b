package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablemerge/internal/etl"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "state", "tablemerge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_MigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tablemerge.db")
	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Close())
}

func TestRunStore_CreateAndList(t *testing.T) {
	store := NewRunStore(newTestDB(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []string{etl.StatusSuccess, etl.StatusError, etl.StatusSuccess} {
		l := &etl.MergeRunLog{
			JobKey:      "job-a",
			Profile:     "urban_waters",
			Primary:     "many.csv",
			Secondary:   "one.csv",
			Output:      "out.csv",
			Trigger:     "manual",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			FinishedAt:  base.Add(time.Duration(i)*time.Minute + time.Second),
			Status:      status,
			RowsRead:    10,
			RowsWritten: 7,
			Notices:     i,
			Fingerprint: []string{"aa", "", "cc"}[i],
		}
		require.NoError(t, store.CreateRunLog(l))
		assert.NotEmpty(t, l.ID)
	}
	require.NoError(t, store.CreateRunLog(&etl.MergeRunLog{
		JobKey: "job-b", StartedAt: base, FinishedAt: base, Status: etl.StatusSuccess,
	}))

	logs, err := store.ListRunLogs("job-a", 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, 2, logs[0].Notices, "newest first")
	assert.Equal(t, "cc", logs[0].Fingerprint)
	assert.Equal(t, etl.StatusError, logs[1].Status)

	all, err := store.ListRunLogs("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := store.ListRunLogs("", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	assert.Equal(t, "many.csv", logs[2].Primary)
	assert.True(t, logs[2].StartedAt.Equal(base))
}

func TestRunStore_LastFingerprint(t *testing.T) {
	store := NewRunStore(newTestDB(t))

	fp, err := store.LastFingerprint("job")
	require.NoError(t, err)
	assert.Empty(t, fp)

	now := time.Now().UTC()
	require.NoError(t, store.CreateRunLog(&etl.MergeRunLog{
		JobKey: "job", StartedAt: now, FinishedAt: now, Status: etl.StatusSuccess, Fingerprint: "first",
	}))
	require.NoError(t, store.CreateRunLog(&etl.MergeRunLog{
		JobKey: "job", StartedAt: now.Add(time.Second), FinishedAt: now.Add(time.Second), Status: etl.StatusError,
	}))

	fp, err = store.LastFingerprint("job")
	require.NoError(t, err)
	assert.Equal(t, "first", fp)
}
