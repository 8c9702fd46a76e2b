package jobs

import (
	"context"
	"log"
)

// Job is one unit of deferred work.
type Job func(ctx context.Context)

// Queue is a best-effort, in-process job list. Jobs run in enqueue order on a
// single worker goroutine. There is no persistence and no retry: jobs are
// lost on process restart and dropped when the list is full. Callers must not
// put anything here whose loss they cannot tolerate.
type Queue struct {
	jobs chan Job
}

// NewQueue creates a queue holding at most size pending jobs.
func NewQueue(size int) *Queue {
	return &Queue{jobs: make(chan Job, size)}
}

// Run drains the queue until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	log.Println("[Jobs] worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[Jobs] worker stopped")
			return
		case job := <-q.jobs:
			job(ctx)
		}
	}
}

// Enqueue offers a job without blocking. Returns false if the job was dropped
// because the list is full.
func (q *Queue) Enqueue(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		log.Println("[Jobs] queue full, job dropped")
		return false
	}
}

// Pending returns the number of queued jobs.
func (q *Queue) Pending() int {
	return len(q.jobs)
}
