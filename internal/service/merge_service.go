package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tablemerge/internal/etl"
	"tablemerge/internal/log"
)

// ─────────────────────────────────────────────────────────────
// Merge Service: runs merge jobs once, on input change or on a schedule
// ─────────────────────────────────────────────────────────────

// Triggers recorded in the run history.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"
	TriggerFileWatch = "file_watch"
	TriggerMCP       = "mcp"
)

// RunStore is the run history the service records into.
type RunStore interface {
	CreateRunLog(log *etl.MergeRunLog) error
	ListRunLogs(jobKey string, limit int) ([]etl.MergeRunLog, error)
	LastFingerprint(jobKey string) (string, error)
}

// RunEvent is the payload of merge events.
type RunEvent struct {
	JobKey  string              `json:"jobKey"`
	Trigger string              `json:"trigger"`
	Result  *etl.MergeRunResult `json:"result,omitempty"`
	// Changed is false when the output fingerprint equals the previous
	// successful run's.
	Changed bool `json:"changed"`
}

// JobRequest is a merge as a user asks for it: references and names,
// before any of them are resolved.
type JobRequest struct {
	ID           string `json:"id,omitempty"`
	Primary      string `json:"primary"`
	Secondary    string `json:"secondary"`
	Output       string `json:"output"`
	Profile      string `json:"profile,omitempty"`
	ExtraColumns string `json:"extraColumns,omitempty"`
	Mode         string `json:"mode,omitempty"`
}

// MergeService runs merge jobs and records their history.
type MergeService struct {
	engine      *etl.Engine
	runs        RunStore
	emitter     EventEmitter
	active      activeRuns
	debounce    time.Duration
	timeout     time.Duration
}

// NewMergeService creates a MergeService. runs may be nil to keep no history.
func NewMergeService(runs RunStore, emitter EventEmitter) *MergeService {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	return &MergeService{
		engine:   &etl.Engine{},
		runs:     runs,
		emitter:  emitter,
		debounce: 500 * time.Millisecond,
		timeout:  30 * time.Minute,
	}
}

// SetDebounce sets how long Watch waits for writes to settle.
func (s *MergeService) SetDebounce(d time.Duration) {
	if d > 0 {
		s.debounce = d
	}
}

// ── Run ────────────────────────────────────────────────────

// Run executes job once. A job already running (from a previous trigger)
// is not started twice.
func (s *MergeService) Run(ctx context.Context, job *etl.MergeJob, trigger string) (*etl.MergeRunResult, error) {
	key := job.Key()
	if held, ok := s.active.acquire(key, trigger); !ok {
		s.emitter.Emit(ctx, EventMergeSkipped, RunEvent{JobKey: key, Trigger: trigger})
		return nil, fmt.Errorf("job %s is already running (%s trigger since %s)",
			key, held.Trigger, held.Since.Format(time.TimeOnly))
	}
	defer s.active.release(key)

	ctx = log.WithLogger(ctx, log.G(ctx).WithFields(logrus.Fields{"job": key, "trigger": trigger}))
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	previous := ""
	if s.runs != nil {
		previous, _ = s.runs.LastFingerprint(key)
	}

	start := time.Now()
	result, runErr := s.engine.RunMerge(runCtx, job)

	if s.runs != nil {
		runLog := &etl.MergeRunLog{
			JobKey:      key,
			Profile:     job.Profile,
			Primary:     job.Primary.Raw,
			Secondary:   job.Secondary.Raw,
			Output:      job.Output.Raw,
			Trigger:     trigger,
			StartedAt:   start,
			FinishedAt:  time.Now(),
			Status:      result.Status,
			RowsRead:    result.RowsRead,
			RowsWritten: result.RowsWritten,
			Notices:     result.Diagnostics.Len(),
			Error:       result.Error,
			Fingerprint: result.Fingerprint,
		}
		if err := s.runs.CreateRunLog(runLog); err != nil {
			log.G(ctx).WithError(err).Warn("failed to record run")
		}
	}

	ev := RunEvent{JobKey: key, Trigger: trigger, Result: result}
	if runErr != nil {
		s.emitter.Emit(ctx, EventMergeFailed, ev)
		return result, runErr
	}
	ev.Changed = result.Fingerprint != previous
	s.emitter.Emit(ctx, EventMergeCompleted, ev)
	return result, nil
}

// ListRuns returns the latest runs of jobKey (all jobs when empty).
func (s *MergeService) ListRuns(jobKey string, limit int) ([]etl.MergeRunLog, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("run history is disabled")
	}
	return s.runs.ListRunLogs(jobKey, limit)
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *MergeService) WaitRunning(ctx context.Context) {
	s.active.wait(ctx)
}

// ── Watch ──────────────────────────────────────────────────

// WatchPaths returns the local input files of job.
func WatchPaths(job *etl.MergeJob) []string {
	var paths []string
	for _, res := range []etl.Resource{job.Primary, job.Secondary} {
		if !res.IsLocal() {
			continue
		}
		if abs, err := filepath.Abs(res.Location); err == nil {
			paths = append(paths, abs)
		}
	}
	return paths
}

// Watch reruns job whenever one of its local input files is written, after
// writes have settled for the debounce interval. It blocks until ctx is
// cancelled.
func (s *MergeService) Watch(ctx context.Context, job *etl.MergeJob) error {
	logger := log.G(ctx).WithField("component", "watcher")
	paths := WatchPaths(job)
	if len(paths) == 0 {
		return fmt.Errorf("watch: no local input files to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, p := range paths {
		watched[p] = true
		// Editors replace files; watch the directory, not the inode.
		dir := filepath.Dir(p)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch dir %q: %w", dir, err)
		}
		watchedDirs[dir] = true
	}
	logger.Infof("watching %d file(s)", len(watched))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			s.WaitRunning(context.Background())
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			if !watched[absPath] {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				logger.WithField("file", absPath).Info("input changed, merging")
				if _, err := s.Run(ctx, job, TriggerFileWatch); err != nil {
					logger.WithError(err).Error("merge failed")
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("watcher error")
		}
	}
}

// ── Schedule ───────────────────────────────────────────────

// ValidateSchedule checks a standard 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Schedule runs job on the cron expression until ctx is cancelled.
func (s *MergeService) Schedule(ctx context.Context, job *etl.MergeJob, expr string) error {
	logger := log.G(ctx).WithField("component", "cron")
	if err := ValidateSchedule(expr); err != nil {
		return err
	}

	c := cron.New()
	if _, err := c.AddFunc(expr, func() {
		logger.Info("scheduled merge")
		if _, err := s.Run(ctx, job, TriggerSchedule); err != nil {
			logger.WithError(err).Error("merge failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	c.Start()
	logger.WithField("schedule", expr).Info("merge scheduled")

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Active returns the merge runs in progress, ordered by job key.
func (s *MergeService) Active() []ActiveRun {
	return s.active.list()
}
