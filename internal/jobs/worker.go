package jobs

import (
	"context"
	"log"
	"time"
)

// Task is one unit of recurring maintenance, such as pruning idle
// sessions from the in-memory store.
type Task interface {
	Run(ctx context.Context) error
}

// Worker runs a maintenance task on a fixed interval until stopped.
// A failed run is logged and retried on the next tick.
type Worker struct {
	task     Task
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWorker creates a worker for the given task and interval.
func NewWorker(task Task, interval time.Duration) *Worker {
	return &Worker{
		task:     task,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the tick loop. It blocks until Stop is called or the
// context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("maintenance worker started, running every %v", w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("maintenance worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("maintenance worker stopped")
			return
		case <-ticker.C:
			if err := w.task.Run(ctx); err != nil {
				log.Printf("maintenance task failed: %v", err)
			}
		}
	}
}

// Stop signals the worker and waits for the loop to exit.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
