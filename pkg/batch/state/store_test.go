package state

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuget/danmuget/pkg/batch"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleJob() *batch.Job {
	now := time.Now().Truncate(time.Millisecond)
	return &batch.Job{
		ID:       "job-1",
		State:    batch.StateRunning,
		Title:    "某动漫",
		Template: "[标题][集数]",
		Convert:  true,
		Tasks: []batch.Task{
			{EpisodeID: 100, Title: "【B站】第1话", CleanTitle: "第1话", Seq: 0},
			{EpisodeID: 101, Title: "【B站】第2话", CleanTitle: "第2话", Seq: 1},
		},
		Names:     []string{"某动漫E01.ass", "某动漫E02.ass"},
		Next:      1,
		Artifacts: []batch.Artifact{{Name: "某动漫E01.ass", Data: []byte("[Script Info]")}},
		Log:       []batch.LogLine{{At: now, Message: "job created with 2 episodes"}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	want := sampleJob()
	if err := s.Put(want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(want.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for a stored job")
	}
	if got.State != want.State || got.Title != want.Title || got.Template != want.Template ||
		got.Next != want.Next || got.Convert != want.Convert {
		t.Errorf("job fields differ: got %+v", got)
	}
	if len(got.Tasks) != 2 || got.Tasks[1].EpisodeID != 101 || got.Tasks[1].CleanTitle != "第2话" {
		t.Errorf("tasks differ: %+v", got.Tasks)
	}
	if len(got.Names) != 2 || got.Names[0] != "某动漫E01.ass" {
		t.Errorf("names differ: %v", got.Names)
	}
	if len(got.Artifacts) != 1 || !bytes.Equal(got.Artifacts[0].Data, []byte("[Script Info]")) {
		t.Errorf("artifacts differ: %+v", got.Artifacts)
	}
	if len(got.Log) != 1 || got.Log[0].Message != "job created with 2 episodes" {
		t.Errorf("log differs: %+v", got.Log)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestGetUnknownIDReturnsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Get("nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil", got)
	}
}

func TestPutReplacesChildren(t *testing.T) {
	s := openTestStore(t)
	job := sampleJob()
	if err := s.Put(job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	job.Next = 2
	job.State = batch.StateCompleted
	job.Artifacts = append(job.Artifacts, batch.Artifact{Name: "某动漫E02.ass", Data: []byte("x")})
	if err := s.Put(job); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, err := s.Get(job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != batch.StateCompleted || len(got.Artifacts) != 2 {
		t.Errorf("update not applied: state=%s artifacts=%d", got.State, len(got.Artifacts))
	}
}

func TestSetCancelled(t *testing.T) {
	s := openTestStore(t)
	job := sampleJob()
	if err := s.Put(job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.SetCancelled(job.ID); err != nil {
		t.Fatalf("SetCancelled() error = %v", err)
	}
	got, _ := s.Get(job.ID)
	if !got.Cancelled {
		t.Error("Cancelled flag not persisted")
	}
	if err := s.SetCancelled("nope"); err == nil {
		t.Error("SetCancelled() accepted an unknown id")
	}
}

func TestDeleteCascades(t *testing.T) {
	s := openTestStore(t)
	job := sampleJob()
	if err := s.Put(job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Delete(job.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err := s.Get(job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("job survived Delete(): %+v", got)
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	a := sampleJob()
	if err := s.Put(a); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	b := sampleJob()
	b.ID = "job-2"
	b.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	if err := s.Put(b); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	sums, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("List() returned %d jobs, want 2", len(sums))
	}
	if sums[0].ID != "job-2" {
		t.Errorf("List() order = [%s, %s], want most recent first", sums[0].ID, sums[1].ID)
	}
	if sums[1].Done != 1 || sums[1].Total != 2 {
		t.Errorf("summary progress = %d/%d, want 1/2", sums[1].Done, sums[1].Total)
	}
}

func TestWorksAsBatchStore(t *testing.T) {
	var store batch.Store = openTestStore(t)
	job := sampleJob()
	if err := store.Put(job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := store.Get(job.ID)
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
}
