package inmemory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmoroney/saverdash/internal/jobs"
)

// waitForStatus polls the store until the job reaches status or the deadline passes.
func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.RefreshJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == status {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, status)
	return nil
}

func TestQueue_ProcessesJobs(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 1, store)
	defer queue.Close()

	processed := make(chan string, 1)
	handler := func(ctx context.Context, job jobs.Job) error {
		processed <- job.GetID()
		return nil
	}
	if err := queue.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.RefreshJob{}
	if err := queue.PublishRefresh(context.Background(), job); err != nil {
		t.Fatalf("PublishRefresh failed: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("PublishRefresh must assign a job ID")
	}

	select {
	case gotID := <-processed:
		if gotID != job.JobID {
			t.Errorf("handler saw job %s, want %s", gotID, job.JobID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job was never handed to the handler")
	}

	saved := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if saved.StartedAt == nil || saved.CompletedAt == nil {
		t.Error("completed job must carry start and completion timestamps")
	}
}

func TestQueue_PublishedJobIsNotMutatedByWorker(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 1, store)
	defer queue.Close()

	handler := func(ctx context.Context, job jobs.Job) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	if err := queue.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.RefreshJob{}
	if err := queue.PublishRefresh(context.Background(), job); err != nil {
		t.Fatalf("PublishRefresh failed: %v", err)
	}

	// The HTTP handler reads the published job to build its response while
	// the worker is already processing. Keep reading it until the store
	// reports completion; the race detector flags any worker write to the
	// same struct.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.Status != jobs.JobStatusPending {
			t.Fatalf("published job mutated after enqueue: status = %s", job.Status)
		}
		saved, err := store.GetJob(context.Background(), job.JobID)
		if err == nil && saved.Status == jobs.JobStatusCompleted {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if job.Status != jobs.JobStatusPending {
		t.Errorf("published job status = %s, want it left at %s", job.Status, jobs.JobStatusPending)
	}
	if job.StartedAt != nil || job.CompletedAt != nil {
		t.Error("published job timestamps must stay unset; progress lives in the store")
	}
	waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
}

func TestQueue_RetriesFailedJobs(t *testing.T) {
	store := NewStore()
	queue := NewQueue(10, 1, store)
	defer queue.Close()

	attempts := make(chan struct{}, 4)
	handler := func(ctx context.Context, job jobs.Job) error {
		attempts <- struct{}{}
		if len(attempts) < 2 {
			return fmt.Errorf("transient failure")
		}
		return nil
	}
	if err := queue.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.RefreshJob{}
	if err := queue.PublishRefresh(context.Background(), job); err != nil {
		t.Fatalf("PublishRefresh failed: %v", err)
	}

	saved := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if saved.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", saved.RetryCount)
	}
	if saved.Error != "" {
		t.Errorf("completed job must clear the error, got %q", saved.Error)
	}
}
