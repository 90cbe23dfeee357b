package storage

import (
	"database/sql"

	"github.com/google/uuid"

	"tablemerge/internal/etl"
)

// RunStore persists merge run logs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

const runColumns = `id, job_key, profile, primary_ref, secondary_ref, output_ref, trigger_type,
	started_at, finished_at, status, rows_read, rows_written, notices, error, fingerprint`

func (s *RunStore) CreateRunLog(log *etl.MergeRunLog) error {
	log.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO merge_runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.JobKey, log.Profile, log.Primary, log.Secondary, log.Output, log.Trigger,
		log.StartedAt, log.FinishedAt, log.Status, log.RowsRead, log.RowsWritten,
		log.Notices, log.Error, log.Fingerprint,
	)
	return err
}

// ListRunLogs returns the latest runs, newest first. An empty jobKey lists
// every job.
func (s *RunStore) ListRunLogs(jobKey string, limit int) ([]etl.MergeRunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM merge_runs`
	args := []any{}
	if jobKey != "" {
		query += ` WHERE job_key = ?`
		args = append(args, jobKey)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []etl.MergeRunLog
	for rows.Next() {
		l, err := scanRunLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

// LastFingerprint returns the fingerprint of the job's latest successful run.
func (s *RunStore) LastFingerprint(jobKey string) (string, error) {
	var fp string
	err := s.db.conn.QueryRow(
		`SELECT fingerprint FROM merge_runs WHERE job_key = ? AND status = ?
		 ORDER BY started_at DESC LIMIT 1`, jobKey, etl.StatusSuccess,
	).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return fp, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunLog(r scanner) (*etl.MergeRunLog, error) {
	var l etl.MergeRunLog
	err := r.Scan(&l.ID, &l.JobKey, &l.Profile, &l.Primary, &l.Secondary, &l.Output, &l.Trigger,
		&l.StartedAt, &l.FinishedAt, &l.Status, &l.RowsRead, &l.RowsWritten,
		&l.Notices, &l.Error, &l.Fingerprint)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
