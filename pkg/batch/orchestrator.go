package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/danmuget/danmuget/pkg/httputil"
	"github.com/danmuget/danmuget/pkg/naming"
)

// Retry policy for feed downloads.
const (
	DefaultAttempts = 6
	DefaultBackoff  = 2 * time.Second
)

// Fetcher downloads the raw comment feed for one episode.
type Fetcher interface {
	Comments(ctx context.Context, episodeID int64) ([]byte, error)
}

// Orchestrator drives jobs through their task lists. It is stateless;
// everything mutable lives in the Store, so several orchestrators may
// share one store as long as they work on different jobs.
type Orchestrator struct {
	Fetcher Fetcher
	Convert func(raw []byte) ([]byte, error) // nil keeps feeds raw
	Store   Store
	Logger  *log.Logger

	// Attempts and Backoff override the download retry policy; zero
	// values mean the defaults above.
	Attempts int
	Backoff  time.Duration
}

// New returns an orchestrator with the default retry policy and a
// discarding logger.
func New(fetcher Fetcher, convert func([]byte) ([]byte, error), store Store) *Orchestrator {
	return &Orchestrator{
		Fetcher: fetcher,
		Convert: convert,
		Store:   store,
		Logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
}

// StartSpec describes a batch to launch.
type StartSpec struct {
	Title     string // display title and [标题] expansion
	Template  string // filename template, tokens per package naming
	Selection string // episode selection expression
	Movie     bool
	Convert   bool   // convert feeds to ASS; false keeps raw XML
	Tasks     []Task // full episode list the selection applies to
}

// Start resolves the selection and filenames for a new job, persists it
// and returns it. The job is created idle; advance it with [Orchestrator.Tick]
// or [Orchestrator.Run].
func (o *Orchestrator) Start(spec StartSpec) (*Job, error) {
	selected, err := ParseSelection(spec.Selection, spec.Tasks)
	if err != nil {
		return nil, fmt.Errorf("selection %q: %w", spec.Selection, err)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("selection %q matches no episodes", spec.Selection)
	}

	items := make([]naming.Item, len(selected))
	for i, t := range selected {
		items[i] = naming.Item{
			Title:    spec.Title,
			RawTitle: t.CleanTitle,
			Index:    t.Seq,
			Total:    len(selected),
			Movie:    spec.Movie,
		}
	}
	template := spec.Template
	names, appended := naming.Resolve(template, items)
	if appended {
		template += naming.EpisodeTag
	}
	ext := ".xml"
	if spec.Convert {
		ext = ".ass"
	}
	for i := range names {
		names[i] += ext
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		State:     StateIdle,
		Title:     spec.Title,
		Template:  template,
		Movie:     spec.Movie,
		Convert:   spec.Convert,
		Tasks:     selected,
		Names:     names,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if appended {
		job.Logf("duplicate filenames detected, appended %s to template", naming.EpisodeTag)
	}
	job.Logf("job created with %d episodes", len(selected))
	if err := o.Store.Put(job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}
	o.Logger.Info("job created", "id", job.ID, "episodes", len(selected))
	return job, nil
}

// Tick processes the next pending task of the job and persists the
// result. A terminal job is returned unchanged. The cancel flag is
// re-read from the store on every tick, so a concurrent cancel takes
// effect at the next task boundary and the artifacts collected so far
// are kept.
func (o *Orchestrator) Tick(ctx context.Context, id string) (*Job, error) {
	job, err := o.Store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %s not found", id)
	}
	if job.State.Terminal() {
		return job, nil
	}

	switch {
	case job.Cancelled:
		job.Logf("cancelled after %d of %d episodes", job.Next, len(job.Tasks))
		return job, o.finish(job, StateCancelled)
	case job.Next >= len(job.Tasks):
		job.Logf("completed, %d artifacts", len(job.Artifacts))
		return job, o.finish(job, StateCompleted)
	}

	job.State = StateRunning
	task := job.Tasks[job.Next]
	name := job.Names[job.Next]

	raw, err := o.fetch(ctx, job, task)
	if err != nil {
		state := StateCircuitBroken
		if errors.Is(err, context.Canceled) {
			state = StateCancelled
		}
		job.Logf("giving up on %q: %v", task.Title, err)
		o.Logger.Error("download failed", "id", job.ID, "episode", task.EpisodeID, "err", err)
		return job, o.finish(job, state)
	}

	data := raw
	if job.Convert && o.Convert != nil {
		if data, err = o.Convert(raw); err != nil {
			job.Logf("skipping %q: %v", task.Title, err)
			o.Logger.Warn("conversion failed", "id", job.ID, "episode", task.EpisodeID, "err", err)
			job.Next++
			return job, o.save(job)
		}
	}

	job.Artifacts = append(job.Artifacts, Artifact{Name: name, Data: data})
	job.Next++
	job.Logf("saved %q (%d bytes)", name, len(data))
	o.Logger.Info("episode done", "id", job.ID, "name", name, "bytes", len(data))
	return job, o.save(job)
}

// Run ticks the job until it reaches a terminal state.
func (o *Orchestrator) Run(ctx context.Context, id string) (*Job, error) {
	for {
		job, err := o.Tick(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.State.Terminal() {
			return job, nil
		}
	}
}

func (o *Orchestrator) fetch(ctx context.Context, job *Job, task Task) ([]byte, error) {
	attempts := o.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	backoff := o.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	var raw []byte
	notify := func(attempt int, err error) {
		job.Logf("retrying %q (attempt %d): %v", task.Title, attempt, err)
		o.Logger.Warn("retrying download", "id", job.ID, "episode", task.EpisodeID, "attempt", attempt, "err", err)
	}
	err := httputil.Retry(ctx, attempts, backoff, notify, func() error {
		var ferr error
		raw, ferr = o.Fetcher.Comments(ctx, task.EpisodeID)
		return ferr
	})
	return raw, err
}

func (o *Orchestrator) finish(job *Job, state State) error {
	job.State = state
	return o.save(job)
}

func (o *Orchestrator) save(job *Job) error {
	job.UpdatedAt = time.Now()
	if err := o.Store.Put(job); err != nil {
		return fmt.Errorf("persist job: %w", err)
	}
	return nil
}
