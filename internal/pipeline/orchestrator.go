package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/reportsmith/internal/config"
)

// Orchestrator manages the asynchronous report generation jobs.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	log    *slog.Logger
	cfg    config.Config

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, worker *Worker, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: worker,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		interval := 5 * time.Minute
		if o.cfg.JobTTL > 0 && o.cfg.JobTTL < interval {
			interval = o.cfg.JobTTL
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a job. When a live job already covers the same content
// and report type, that job is returned instead and nothing is queued.
func (o *Orchestrator) Submit(job *Job) (*Job, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return nil, false, fmt.Errorf("pipeline is shut down")
	}

	if existing := o.jobs.FindByHash(job.ContentHash); existing != nil {
		o.log.Info("duplicate submission", "job_id", existing.ID, "filename", job.Filename)
		return existing, true, nil
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return job, false, nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return job, false, fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Worker returns the worker for direct use by the synchronous handlers.
func (o *Orchestrator) Worker() *Worker {
	return o.worker
}
