package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablemerge/internal/config"
	"tablemerge/internal/etl"
	"tablemerge/internal/profile"
	"tablemerge/internal/service"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.NewConfig()
	cfg.StateDir = filepath.Join(t.TempDir(), "state")
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(context.Background(), cfg, &service.MockEmitter{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestNewJob_DefaultProfile(t *testing.T) {
	a := newTestApp(t, nil)
	job, err := a.NewJob(service.JobRequest{Primary: "one.csv", Secondary: "many.csv", Output: "out.csv"})
	require.NoError(t, err)

	assert.Equal(t, string(profile.UrbanWaters), job.Profile)
	assert.Equal(t, "ID", job.Config.PrimaryKey)
	assert.Equal(t, etl.ExtraColumnsError, job.Write.ExtraColumns)
	assert.Equal(t, etl.SyncReplace, job.Write.Mode)
	assert.Equal(t, "one.csv|many.csv|out.csv", job.Key())
}

func TestNewJob_Precedence(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Writer.ExtraColumns = "drop"
		c.Writer.Mode = "append"
	})

	job, err := a.NewJob(service.JobRequest{Primary: "a.csv", Secondary: "b.csv", Output: "c.csv"})
	require.NoError(t, err)
	assert.Equal(t, etl.ExtraColumnsDrop, job.Write.ExtraColumns)
	assert.Equal(t, etl.SyncAppend, job.Write.Mode)

	job, err = a.NewJob(service.JobRequest{Primary: "a.csv", Secondary: "b.csv", Output: "c.csv", ExtraColumns: "append", Mode: "replace"})
	require.NoError(t, err)
	assert.Equal(t, etl.ExtraColumnsAppend, job.Write.ExtraColumns)
	assert.Equal(t, etl.SyncReplace, job.Write.Mode)
}

func TestNewJob_Errors(t *testing.T) {
	a := newTestApp(t, nil)

	_, err := a.NewJob(service.JobRequest{Primary: "a.csv", Secondary: "b.csv", Output: "c.csv", Profile: "nope"})
	require.ErrorIs(t, err, profile.ErrUnknownProfile)

	_, err = a.NewJob(service.JobRequest{Primary: "a.csv", Secondary: "b.xlsx", Output: "c.csv"})
	require.ErrorIs(t, err, etl.ErrUnsupportedResource)
	assert.Contains(t, err.Error(), "secondary")

	_, err = a.NewJob(service.JobRequest{Primary: "a.csv", Secondary: "b.csv", Output: "c.csv", Mode: "upsert"})
	require.Error(t, err)
}

func TestNew_UnknownDefaultProfile(t *testing.T) {
	cfg := config.NewConfig()
	cfg.StateDir = t.TempDir()
	cfg.DefaultProfile = "missing"
	_, err := New(context.Background(), cfg, nil)
	require.ErrorIs(t, err, profile.ErrUnknownProfile)
}

func TestNew_HistoryDisabled(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.DisableHistory = true })
	assert.False(t, a.HistoryEnabled())
}

func TestNew_HistoryOpenedOnFirstUse(t *testing.T) {
	a := newTestApp(t, nil)
	stateDir := a.Config().StateDir

	_, err := a.NewJob(service.JobRequest{Primary: "a.csv", Secondary: "b.csv", Output: "c.csv", Profile: "nope"})
	require.ErrorIs(t, err, profile.ErrUnknownProfile)
	_, statErr := os.Stat(stateDir)
	assert.True(t, os.IsNotExist(statErr), "state dir created before any run")

	runs, err := a.Merge().ListRuns("", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.FileExists(t, a.Config().HistoryPath())
}
