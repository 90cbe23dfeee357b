package service

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ── Running merges ─────────────────────────────────────────

// ActiveRun describes a merge job that holds its output right now.
type ActiveRun struct {
	JobKey  string    `json:"jobKey"`
	Trigger string    `json:"trigger"`
	Since   time.Time `json:"since"`
}

// activeRuns admits one run per job key. A file-watch trigger arriving
// while the scheduled run of the same job is still writing is refused
// instead of racing it for the output.
type activeRuns struct {
	mu   sync.Mutex
	runs map[string]ActiveRun
	wg   sync.WaitGroup
}

// acquire admits a run of key started by trigger. When key is already
// running it returns the run holding it and false.
func (a *activeRuns) acquire(key, trigger string) (ActiveRun, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if held, ok := a.runs[key]; ok {
		return held, false
	}
	if a.runs == nil {
		a.runs = make(map[string]ActiveRun)
	}
	run := ActiveRun{JobKey: key, Trigger: trigger, Since: time.Now()}
	a.runs[key] = run
	a.wg.Add(1)
	return run, true
}

// release ends the run of key admitted by acquire.
func (a *activeRuns) release(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.runs[key]; !ok {
		return
	}
	delete(a.runs, key)
	a.wg.Done()
}

// list returns the active runs ordered by job key.
func (a *activeRuns) list() []ActiveRun {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ActiveRun, 0, len(a.runs))
	for _, r := range a.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobKey < out[j].JobKey })
	return out
}

// wait blocks until no run is active or ctx is done.
func (a *activeRuns) wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
