package project

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/messages"
	"github.com/gnana997/codeconnect/pkg/util"
)

// FileJob is a file to be parsed by the worker pool.
type FileJob struct {
	FilePath string
	JobID    int
}

// FileResult is the outcome of parsing one file.
type FileResult struct {
	FilePath string
	JobID    int
	Docs     []*connect.Document
	Messages messages.Messages
}

// FileError is a file that failed to parse.
type FileError struct {
	FilePath string
	JobID    int
	Error    error
}

// ParseFunc parses one file.
type ParseFunc func(ctx context.Context, path string) (*FileResult, error)

// WorkerPool parses files on a fixed set of goroutines.
//
// Usage:
//
//	pool := NewWorkerPool(0, parse, logger)
//	pool.Start()
//	defer pool.Stop()
//
//	// Start a collector reading Results() and Errors() before submitting,
//	// otherwise Submit blocks once the buffers fill up.
//	for i, file := range files {
//	    pool.Submit(FileJob{FilePath: file, JobID: i})
//	}
//	pool.FinishSubmitting()
type WorkerPool struct {
	numWorkers int
	jobs       chan FileJob
	results    chan FileResult
	errors     chan FileError
	wg         sync.WaitGroup
	parse      ParseFunc
	logger     *slog.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	started    atomic.Bool
	stopped    atomic.Bool
	jobsClosed atomic.Bool

	jobsSubmitted atomic.Int64
	jobsProcessed atomic.Int64
	jobsFailed    atomic.Int64
}

// NewWorkerPool creates a pool of numWorkers goroutines (0 = auto-detect
// with util.GetOptimalPoolSize).
func NewWorkerPool(numWorkers int, parse ParseFunc, logger *slog.Logger) *WorkerPool {
	numWorkers = util.GetOptimalPoolSizeWithOverride(numWorkers)
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		numWorkers: numWorkers,
		jobs:       make(chan FileJob, numWorkers*2),
		results:    make(chan FileResult, numWorkers),
		errors:     make(chan FileError, numWorkers),
		parse:      parse,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start spawns the workers. Must be called before submitting jobs.
func (wp *WorkerPool) Start() {
	if !wp.started.CompareAndSwap(false, true) {
		wp.logger.Warn("WorkerPool already started")
		return
	}
	wp.logger.Debug("Starting worker pool", "workers", wp.numWorkers)
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	for {
		select {
		case <-wp.ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processJob(id, job)
		}
	}
}

func (wp *WorkerPool) processJob(workerID int, job FileJob) {
	wp.logger.Debug("Processing job", "worker_id", workerID, "file", job.FilePath, "job_id", job.JobID)

	result, err := wp.parse(wp.ctx, job.FilePath)
	if err != nil {
		wp.jobsFailed.Add(1)
		select {
		case wp.errors <- FileError{FilePath: job.FilePath, JobID: job.JobID, Error: err}:
		case <-wp.ctx.Done():
		}
		return
	}

	if result == nil {
		result = &FileResult{}
	}
	result.FilePath = job.FilePath
	result.JobID = job.JobID
	wp.jobsProcessed.Add(1)
	select {
	case wp.results <- *result:
	case <-wp.ctx.Done():
	}
}

// Submit enqueues a job. Blocks while the queue is full.
func (wp *WorkerPool) Submit(job FileJob) error {
	if wp.stopped.Load() {
		return fmt.Errorf("worker pool is stopped")
	}
	if wp.ctx.Err() != nil {
		return fmt.Errorf("worker pool cancelled")
	}
	wp.jobsSubmitted.Add(1)
	select {
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool cancelled")
	case wp.jobs <- job:
		return nil
	}
}

// Results returns the results channel.
func (wp *WorkerPool) Results() <-chan FileResult {
	return wp.results
}

// Errors returns the errors channel.
func (wp *WorkerPool) Errors() <-chan FileError {
	return wp.errors
}

// FinishSubmitting closes the jobs channel so workers exit once it is
// drained. Safe to call multiple times.
func (wp *WorkerPool) FinishSubmitting() {
	if wp.jobsClosed.CompareAndSwap(false, true) {
		close(wp.jobs)
	}
}

// Cancel abandons queued jobs. Workers finish their current file and exit.
func (wp *WorkerPool) Cancel() {
	wp.cancel()
}

// Stop waits for the workers and closes the result channels. Safe to call
// multiple times.
func (wp *WorkerPool) Stop() {
	if !wp.stopped.CompareAndSwap(false, true) {
		return
	}
	wp.FinishSubmitting()
	wp.wg.Wait()
	close(wp.results)
	close(wp.errors)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped",
		"jobs_submitted", wp.jobsSubmitted.Load(),
		"jobs_processed", wp.jobsProcessed.Load(),
		"jobs_failed", wp.jobsFailed.Load())
}

// GetStats returns current worker pool statistics.
func (wp *WorkerPool) GetStats() WorkerPoolStats {
	return WorkerPoolStats{
		NumWorkers:    wp.numWorkers,
		JobsSubmitted: wp.jobsSubmitted.Load(),
		JobsProcessed: wp.jobsProcessed.Load(),
		JobsFailed:    wp.jobsFailed.Load(),
		QueueLength:   len(wp.jobs),
	}
}

// WorkerPoolStats contains statistics about the worker pool.
type WorkerPoolStats struct {
	NumWorkers    int
	JobsSubmitted int64
	JobsProcessed int64
	JobsFailed    int64
	QueueLength   int // jobs waiting for a worker
}
