package ingestion

import (
	"sync"

	"github.com/lorekeep/lorekeep/core"
)

// jobTracker holds the parse-job state machine for each knowledge record.
// Transitions are PENDING -> RUNNING -> DONE|FAILED; a fresh submit after a
// terminal state restarts at PENDING. All access goes through the mutex so
// readers always observe transitions in that order.
type jobTracker struct {
	mu   sync.Mutex
	jobs map[core.ID]core.JobState
}

func newJobTracker() *jobTracker {
	return &jobTracker{jobs: make(map[core.ID]core.JobState)}
}

// begin moves the job to PENDING. A job that is still PENDING or RUNNING
// cannot be restarted; only one extraction runs per knowledge record.
func (t *jobTracker) begin(id core.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state, ok := t.jobs[id]; ok && !state.Terminal() {
		return ErrJobAlreadyRunning
	}
	t.jobs[id] = core.JobPending
	return nil
}

func (t *jobTracker) set(id core.ID, state core.JobState) {
	t.mu.Lock()
	t.jobs[id] = state
	t.mu.Unlock()
}

func (t *jobTracker) state(id core.ID) (core.JobState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.jobs[id]
	return state, ok
}

// JobHandle allows callers to poll the state of a submitted parse job
// without holding a reference to the pipeline.
type JobHandle struct {
	id      core.ID
	tracker *jobTracker
}

// KnowledgeID returns the knowledge record the job belongs to.
func (h *JobHandle) KnowledgeID() core.ID {
	return h.id
}

// State returns the job's current state.
func (h *JobHandle) State() core.JobState {
	state, _ := h.tracker.state(h.id)
	return state
}

// Done reports whether the job reached a terminal state.
func (h *JobHandle) Done() bool {
	return h.State().Terminal()
}
