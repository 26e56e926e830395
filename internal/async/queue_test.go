package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type countingProcessor struct {
	mu    sync.Mutex
	seen  []uuid.UUID
	err   error
	block chan struct{}
}

func (p *countingProcessor) Process(_ context.Context, job Job) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.seen = append(p.seen, job.DocumentID)
	p.mu.Unlock()
	return p.err
}

func (p *countingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func TestQueueProcessesJobs(t *testing.T) {
	proc := &countingProcessor{}
	q := NewWorkerQueue(proc, nil, WithWorkers(2), WithQueueSize(8))

	const jobs = 5
	for i := 0; i < jobs; i++ {
		if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	if got := proc.count(); got != jobs {
		t.Fatalf("processed %d jobs, want %d", got, jobs)
	}
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	q := NewWorkerQueue(&countingProcessor{}, nil, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); err == nil {
		t.Fatal("enqueue after shutdown must fail")
	}

	// Shutdown is idempotent.
	q.Shutdown(ctx)
}

func TestQueueSurvivesProcessorErrors(t *testing.T) {
	proc := &countingProcessor{err: errors.New("boom")}
	q := NewWorkerQueue(proc, nil, WithWorkers(1), WithQueueSize(4))

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	if got := proc.count(); got != 3 {
		t.Fatalf("processed %d jobs, want 3; worker must keep going after errors", got)
	}
}

func TestQueueDrainsBacklogOnShutdown(t *testing.T) {
	proc := &countingProcessor{block: make(chan struct{})}
	q := NewWorkerQueue(proc, nil, WithWorkers(1), WithQueueSize(8))

	for i := 0; i < 4; i++ {
		if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); err != nil {
			t.Fatal(err)
		}
	}
	close(proc.block)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	if got := proc.count(); got != 4 {
		t.Fatalf("drained %d jobs, want 4", got)
	}
}
