package app

import (
	"fmt"
	"os"
	"sync"

	"tablemerge/internal/etl"
	"tablemerge/internal/storage"
)

// historyStore opens the run history database on first use, so commands
// that fail validation never create the state directory.
type historyStore struct {
	dir  string
	path string

	once sync.Once
	db   *storage.DB
	runs *storage.RunStore
	err  error
}

func newHistoryStore(dir, path string) *historyStore {
	return &historyStore{dir: dir, path: path}
}

func (h *historyStore) open() (*storage.RunStore, error) {
	h.once.Do(func() {
		if err := os.MkdirAll(h.dir, 0o755); err != nil {
			h.err = fmt.Errorf("create state dir: %w", err)
			return
		}
		h.db, h.err = storage.New(h.path)
		if h.err == nil {
			h.runs = storage.NewRunStore(h.db)
		}
	})
	return h.runs, h.err
}

func (h *historyStore) CreateRunLog(log *etl.MergeRunLog) error {
	runs, err := h.open()
	if err != nil {
		return err
	}
	return runs.CreateRunLog(log)
}

func (h *historyStore) ListRunLogs(jobKey string, limit int) ([]etl.MergeRunLog, error) {
	runs, err := h.open()
	if err != nil {
		return nil, err
	}
	return runs.ListRunLogs(jobKey, limit)
}

func (h *historyStore) LastFingerprint(jobKey string) (string, error) {
	runs, err := h.open()
	if err != nil {
		return "", err
	}
	return runs.LastFingerprint(jobKey)
}

// Close closes the database if it was opened.
func (h *historyStore) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}
