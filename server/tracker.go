package server

import (
	"slices"
	"sync"

	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/server/endpoint"
)

// RunTracker holds the run the /progress endpoint reports on. The status
// server starts before the pipeline exists, so the run is attached later.
type RunTracker struct {
	mu       sync.RWMutex
	runID    string
	progress func() pipeline.Progress
	stages   []endpoint.Stage
}

// Track attaches a run. progress is called on every request.
func (t *RunTracker) Track(runID string, progress func() pipeline.Progress, stages ...endpoint.Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runID, t.progress = runID, progress
	t.stages = slices.Clone(stages)
}

// Progress returns the tracked run's id and snapshot, or false when no run
// is attached.
func (t *RunTracker) Progress() (string, pipeline.Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.progress == nil {
		return "", pipeline.Progress{}, false
	}
	return t.runID, t.progress(), true
}

// Stages returns the stages of the tracked run.
func (t *RunTracker) Stages() []endpoint.Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.stages)
}
