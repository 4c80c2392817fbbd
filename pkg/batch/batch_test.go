package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danmuget/danmuget/pkg/httputil"
)

type fakeFetcher struct {
	calls int
	fn    func(episodeID int64) ([]byte, error)
}

func (f *fakeFetcher) Comments(_ context.Context, episodeID int64) ([]byte, error) {
	f.calls++
	return f.fn(episodeID)
}

func upper(raw []byte) ([]byte, error) {
	return bytes.ToUpper(raw), nil
}

func testTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{
			EpisodeID:  int64(100 + i),
			Title:      fmt.Sprintf("【B站】第%d话", i+1),
			CleanTitle: fmt.Sprintf("第%d话", i+1),
			Seq:        i,
		}
	}
	return tasks
}

func testOrchestrator(fetch *fakeFetcher) *Orchestrator {
	o := New(fetch, upper, NewMemoryStore())
	o.Backoff = time.Millisecond
	return o
}

func TestRunHappyPath(t *testing.T) {
	fetch := &fakeFetcher{fn: func(id int64) ([]byte, error) {
		return []byte(fmt.Sprintf("feed-%d", id)), nil
	}}
	o := testOrchestrator(fetch)

	job, err := o.Start(StartSpec{
		Title:     "某动漫",
		Template:  "[标题][集数]",
		Selection: "0",
		Convert:   true,
		Tasks:     testTasks(3),
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if job.State != StateIdle {
		t.Errorf("new job state = %s, want idle", job.State)
	}

	job, err = o.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.State != StateCompleted {
		t.Fatalf("state = %s, want completed", job.State)
	}
	if len(job.Artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(job.Artifacts))
	}
	wantNames := []string{"某动漫E01.ass", "某动漫E02.ass", "某动漫E03.ass"}
	for i, a := range job.Artifacts {
		if a.Name != wantNames[i] {
			t.Errorf("artifact[%d].Name = %q, want %q", i, a.Name, wantNames[i])
		}
	}
	if got := string(job.Artifacts[0].Data); got != "FEED-100" {
		t.Errorf("artifact data = %q, conversion not applied", got)
	}
	if fetch.calls != 3 {
		t.Errorf("fetcher called %d times, want 3", fetch.calls)
	}
}

func TestRunRawMode(t *testing.T) {
	fetch := &fakeFetcher{fn: func(int64) ([]byte, error) {
		return []byte("<i></i>"), nil
	}}
	o := testOrchestrator(fetch)

	job, err := o.Start(StartSpec{
		Title:     "某动漫",
		Template:  "[标题]",
		Selection: "1",
		Convert:   false,
		Tasks:     testTasks(3),
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	job, err = o.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(job.Artifacts) != 1 || job.Artifacts[0].Name != "某动漫.xml" {
		t.Fatalf("artifacts = %+v, want one raw 某动漫.xml", job.Artifacts)
	}
	if got := string(job.Artifacts[0].Data); got != "<i></i>" {
		t.Errorf("raw mode altered the feed: %q", got)
	}
}

func TestCircuitBreakerExhaustsAttempts(t *testing.T) {
	fetch := &fakeFetcher{fn: func(int64) ([]byte, error) {
		return nil, &httputil.RetryableError{Err: errors.New("503")}
	}}
	o := testOrchestrator(fetch)

	job, err := o.Start(StartSpec{
		Title: "x", Template: "[标题]", Selection: "0", Tasks: testTasks(2),
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	job, err = o.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.State != StateCircuitBroken {
		t.Errorf("state = %s, want circuit_broken", job.State)
	}
	if fetch.calls != DefaultAttempts {
		t.Errorf("fetcher called %d times, want %d", fetch.calls, DefaultAttempts)
	}
	if len(job.Artifacts) != 0 {
		t.Errorf("got %d artifacts after circuit break, want 0", len(job.Artifacts))
	}
	if job.Next != 0 {
		t.Errorf("Next = %d, remaining batch should be abandoned", job.Next)
	}
}

func TestNonRetryableErrorBreaksImmediately(t *testing.T) {
	fetch := &fakeFetcher{fn: func(int64) ([]byte, error) {
		return nil, errors.New("bad request")
	}}
	o := testOrchestrator(fetch)

	job, _ := o.Start(StartSpec{
		Title: "x", Template: "[标题]", Selection: "0", Tasks: testTasks(1),
	})
	job, err := o.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.State != StateCircuitBroken {
		t.Errorf("state = %s, want circuit_broken", job.State)
	}
	if fetch.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetch.calls)
	}
}

func TestCancelKeepsPartialResults(t *testing.T) {
	fetch := &fakeFetcher{fn: func(id int64) ([]byte, error) {
		return []byte("feed"), nil
	}}
	o := testOrchestrator(fetch)

	job, err := o.Start(StartSpec{
		Title: "x", Template: "[标题][集数]", Selection: "0", Convert: true, Tasks: testTasks(3),
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job, err = o.Tick(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	job.Cancelled = true
	if err := o.Store.Put(job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	job, err = o.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.State != StateCancelled {
		t.Errorf("state = %s, want cancelled", job.State)
	}
	if len(job.Artifacts) != 1 {
		t.Errorf("got %d artifacts, want the 1 finished before cancel", len(job.Artifacts))
	}
}

func TestConvertFailureSkipsEpisode(t *testing.T) {
	fetch := &fakeFetcher{fn: func(id int64) ([]byte, error) {
		return []byte(fmt.Sprintf("feed-%d", id)), nil
	}}
	o := testOrchestrator(fetch)
	o.Convert = func(raw []byte) ([]byte, error) {
		if bytes.HasSuffix(raw, []byte("100")) {
			return nil, errors.New("malformed feed")
		}
		return raw, nil
	}

	job, _ := o.Start(StartSpec{
		Title: "x", Template: "[标题][集数]", Selection: "0", Convert: true, Tasks: testTasks(2),
	})
	job, err := o.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.State != StateCompleted {
		t.Errorf("state = %s, want completed", job.State)
	}
	if len(job.Artifacts) != 1 || job.Artifacts[0].Name != "xE02.ass" {
		t.Errorf("artifacts = %+v, want only episode 2", job.Artifacts)
	}
}

func TestStartCollisionAppendsEpisodeTag(t *testing.T) {
	o := testOrchestrator(&fakeFetcher{})

	job, err := o.Start(StartSpec{
		Title: "x", Template: "[标题]", Selection: "0", Convert: true, Tasks: testTasks(2),
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if job.Template != "[标题][集数]" {
		t.Errorf("Template = %q, collision fix not applied", job.Template)
	}
	if job.Names[0] != "xE01.ass" || job.Names[1] != "xE02.ass" {
		t.Errorf("Names = %v", job.Names)
	}
}

func TestStartRejectsBadSelection(t *testing.T) {
	o := testOrchestrator(&fakeFetcher{})

	if _, err := o.Start(StartSpec{Template: "[标题]", Selection: "abc", Tasks: testTasks(2)}); !errors.Is(err, ErrSelection) {
		t.Errorf("Start() error = %v, want ErrSelection", err)
	}
	if _, err := o.Start(StartSpec{Template: "[标题]", Selection: "9", Tasks: testTasks(2)}); err == nil {
		t.Error("Start() accepted an empty selection")
	}
}

func TestTickTerminalJobIsStable(t *testing.T) {
	fetch := &fakeFetcher{fn: func(int64) ([]byte, error) { return []byte("f"), nil }}
	o := testOrchestrator(fetch)

	job, _ := o.Start(StartSpec{
		Title: "x", Template: "[标题]", Selection: "1", Convert: true, Tasks: testTasks(1),
	})
	job, err := o.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	again, err := o.Tick(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if again.State != StateCompleted || len(again.Artifacts) != 1 {
		t.Errorf("terminal job changed: %+v", again)
	}
}
