// Package batch orchestrates fetching, converting and naming a selection
// of comment feeds.
//
// A batch is a [Job]: an ordered list of download tasks plus the output
// artifacts collected so far. The [Orchestrator] advances a job one task
// per [Orchestrator.Tick]; all job state lives in a caller-supplied
// [Store] that survives between ticks, so a batch can be resumed by a
// later process or cancelled by a concurrent one. The orchestrator itself
// holds no mutable state.
//
// Failure policy: fetch errors are retried with a fixed backoff and a
// bounded attempt budget; exhausting the budget trips a circuit breaker
// that aborts the remaining batch. A feed that fetches fine but fails to
// convert only skips its own artifact.
package batch

import (
	"fmt"
	"time"
)

// State is the lifecycle phase of a job.
type State string

const (
	StateIdle          State = "idle"
	StateRunning       State = "running"
	StateCompleted     State = "completed"
	StateCancelled     State = "cancelled"
	StateCircuitBroken State = "circuit_broken"
)

// Terminal reports whether no further ticks will change the job.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateCircuitBroken:
		return true
	}
	return false
}

// Task is one episode to download.
type Task struct {
	EpisodeID  int64
	Title      string // raw episode title as served
	CleanTitle string // title with the platform tag stripped
	Seq        int    // zero-based position in the source episode list
}

// Artifact is one named output. Artifacts keep insertion order; the
// packaging layer relies on it.
type Artifact struct {
	Name string
	Data []byte
}

// LogLine is one entry of the job's human-readable transcript.
type LogLine struct {
	At      time.Time
	Message string
}

// Job is the persistent state of one batch run.
type Job struct {
	ID        string
	State     State
	Title     string // display title, usually the search keyword
	Template  string // filename template after any collision fix
	Movie     bool
	Convert   bool // false stores the raw feed verbatim
	Tasks     []Task
	Names     []string // resolved filename per task, extension included
	Next      int      // index of the next task to process
	Cancelled bool     // caller-settable, polled once per task
	Artifacts []Artifact
	Log       []LogLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Logf appends a timestamped line to the job transcript.
func (j *Job) Logf(format string, args ...any) {
	j.Log = append(j.Log, LogLine{At: time.Now(), Message: fmt.Sprintf(format, args...)})
}

// Progress returns processed and total task counts.
func (j *Job) Progress() (done, total int) {
	return j.Next, len(j.Tasks)
}
