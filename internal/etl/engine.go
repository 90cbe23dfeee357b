package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"tablemerge/internal/diagnostic"
	"tablemerge/internal/log"
)

// ── MergeJob ───────────────────────────────────────────────
// Orchestrates: primary.Read + secondary.Read → Merge → sink.Write → Commit.

// MergeJob holds everything needed for a single merge run.
type MergeJob struct {
	ID        string       `json:"id"`
	Profile   string       `json:"profile"`
	Primary   Resource     `json:"primary"`
	Secondary Resource     `json:"secondary"`
	Output    Resource     `json:"output"`
	Config    MergeConfig  `json:"config"`
	Write     WriteOptions `json:"write"`
}

// Key identifies the job across repeated runs (watch, schedule).
func (j *MergeJob) Key() string {
	if j.ID != "" {
		return j.ID
	}
	return j.Primary.Raw + "|" + j.Secondary.Raw + "|" + j.Output.Raw
}

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MergeRunResult is the outcome of running a merge job.
type MergeRunResult struct {
	JobID       string                 `json:"jobId"`
	Status      string                 `json:"status"`
	RowsRead    int                    `json:"rowsRead"`
	RowsWritten int                    `json:"rowsWritten"`
	Duration    time.Duration          `json:"duration"`
	Error       string                 `json:"error,omitempty"`
	Stats       MergeStats             `json:"stats"`
	Diagnostics diagnostic.Diagnostics `json:"diagnostics"`
	Fingerprint string                 `json:"fingerprint,omitempty"`
}

// MergeRunLog is a historical record of a merge run.
type MergeRunLog struct {
	ID          string    `json:"id"`
	JobKey      string    `json:"jobKey"`
	Profile     string    `json:"profile"`
	Primary     string    `json:"primary"`
	Secondary   string    `json:"secondary"`
	Output      string    `json:"output"`
	Trigger     string    `json:"trigger"` // "manual" | "schedule" | "file_watch" | "mcp"
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Status      string    `json:"status"`
	RowsRead    int       `json:"rowsRead"`
	RowsWritten int       `json:"rowsWritten"`
	Notices     int       `json:"notices"`
	Error       string    `json:"error,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs merge jobs using the registered sources and destinations.
type Engine struct{}

// RunMerge executes a merge job end-to-end. The result is always non-nil;
// on failure its Status is StatusError and err is the cause.
func (e *Engine) RunMerge(ctx context.Context, job *MergeJob) (*MergeRunResult, error) {
	start := time.Now()
	result := &MergeRunResult{JobID: job.Key()}
	fail := func(stage string, err error) (*MergeRunResult, error) {
		err = fmt.Errorf("%s: %w", stage, err)
		result.Status = StatusError
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}

	logger := log.G(ctx).WithFields(logrus.Fields{
		"profile":   job.Profile,
		"primary":   job.Primary.Name(),
		"secondary": job.Secondary.Name(),
		"output":    job.Output.Name(),
	})
	ctx = log.WithLogger(ctx, logger)
	logger.Info("merge started")
	if logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.Debugf("merge config:\n%s", spew.Sdump(job.Config))
	}

	// 1. Inputs, then the output. Nothing is merged unless all three open.
	primary, err := ReadTable(ctx, job.Primary)
	if err != nil {
		return fail("read primary", err)
	}
	secondary, err := ReadTable(ctx, job.Secondary)
	if err != nil {
		return fail("read secondary", err)
	}
	result.RowsRead = primary.Len() + secondary.Len()

	sink, err := OpenSink(ctx, job.Output, job.Write)
	if err != nil {
		return fail("open output", err)
	}

	// 2. Merge in memory.
	merged, err := Merge(primary, secondary, job.Config)
	if err != nil {
		sink.Abort()
		return fail("merge", err)
	}
	result.Stats = merged.Stats
	result.Diagnostics = merged.Diagnostics
	reportDiagnostics(logger, merged.Diagnostics)

	// 3. Write and publish.
	written, err := sink.Write(ctx, SchemaFromHeader(merged.Header), merged.Records)
	if err != nil {
		sink.Abort()
		return fail("write", err)
	}
	if err := sink.Commit(); err != nil {
		sink.Abort()
		return fail("commit", err)
	}

	if fp, err := Fingerprint(merged.Header, merged.Records); err == nil {
		result.Fingerprint = fp
	} else {
		logger.WithError(err).Warn("fingerprint failed")
	}

	result.Status = StatusSuccess
	result.RowsWritten = written
	result.Duration = time.Since(start)
	logger.WithFields(logrus.Fields{
		"rows":     written,
		"matched":  merged.Stats.Matched,
		"no_match": merged.Stats.Unmatched,
		"notices":  merged.Diagnostics.Len(),
		"duration": result.Duration.Round(time.Millisecond),
	}).Info("merge finished")
	return result, nil
}

func reportDiagnostics(logger *logrus.Entry, d diagnostic.Diagnostics) {
	for _, n := range d.Errors {
		logger.WithField("table", n.Table).Error(n.Message)
	}
	for _, n := range d.Warnings {
		logger.WithFields(logrus.Fields{"table": n.Table, "code": n.Code}).Warn(n.Message)
	}
	for _, n := range d.Infos {
		logger.WithField("table", n.Table).Debug(n.Message)
	}
}

// Preview reads a resource and returns its header and up to maxRows records.
func (e *Engine) Preview(ctx context.Context, res Resource, maxRows int) (*Table, error) {
	t, err := ReadTable(ctx, res)
	if err != nil {
		return nil, err
	}
	if maxRows > 0 && len(t.Records) > maxRows {
		t.Records = t.Records[:maxRows]
	}
	return t, nil
}
