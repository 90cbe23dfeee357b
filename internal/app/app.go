// Package app wires configuration, profiles, run history and the merge
// service together for the command line and the MCP server.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"tablemerge/internal/config"
	"tablemerge/internal/etl"
	_ "tablemerge/internal/etl/destinations" // register all destinations via init()
	_ "tablemerge/internal/etl/sources"      // register all sources via init()
	"tablemerge/internal/log"
	"tablemerge/internal/profile"
	"tablemerge/internal/service"
)

// App holds the long-lived components of one tablemerge process.
type App struct {
	cfg      *config.Config
	profiles *profile.Catalog
	history  *historyStore
	merge    *service.MergeService
}

// New loads the profile catalog. The run history is opened on first use.
func New(ctx context.Context, cfg *config.Config, emitter service.EventEmitter) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	catalog, err := profile.LoadCatalog(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultProfile != "" {
		if _, err := catalog.Lookup(cfg.DefaultProfile); err != nil {
			return nil, fmt.Errorf("default_profile: %w", err)
		}
	}

	a := &App{cfg: cfg, profiles: catalog}

	var runs service.RunStore
	if !cfg.DisableHistory {
		a.history = newHistoryStore(cfg.StateDir, cfg.HistoryPath())
		runs = a.history
	}

	a.merge = service.NewMergeService(runs, emitter)
	a.merge.SetDebounce(cfg.Watch.Debounce())

	log.G(ctx).WithFields(logrus.Fields{
		"profiles": len(catalog.Names()),
		"history":  cfg.HistoryPath(),
	}).Debug("app ready")
	return a, nil
}

// Close waits for running merges and closes the run history.
func (a *App) Close(ctx context.Context) error {
	for _, r := range a.merge.Active() {
		log.G(ctx).WithFields(logrus.Fields{"job": r.JobKey, "trigger": r.Trigger}).Info("waiting for running merge")
	}
	a.merge.WaitRunning(ctx)
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

func (a *App) Config() *config.Config       { return a.cfg }
func (a *App) Profiles() *profile.Catalog   { return a.profiles }
func (a *App) Merge() *service.MergeService { return a.merge }
func (a *App) HistoryEnabled() bool         { return a.history != nil }

// Preview reads the table behind ref and returns at most rows records.
func (a *App) Preview(ctx context.Context, ref string, rows int) (*etl.Table, error) {
	res, err := etl.ParseResource(ref)
	if err != nil {
		return nil, err
	}
	return (&etl.Engine{}).Preview(ctx, res, rows)
}
