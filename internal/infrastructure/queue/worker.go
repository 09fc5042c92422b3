// Package queue runs the connector jobs persisted in the jobs table with a
// pool of workers.
package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
)

// Runner runs one job and returns its result message
type Runner interface {
	RunJob(ctx context.Context, job *connector.Job) (string, error)
}

// Notifier is told about every job that reached a final state
type Notifier interface {
	Notify(ctx context.Context, job *connector.Job) error
}

// Recorder records the outcome of every job run
type Recorder interface {
	RecordJob(ctx context.Context, model, method, status string, d time.Duration)
}

// Config holds worker pool configuration
type Config struct {
	// Workers is the number of jobs run concurrently
	Workers int
	// BufferSize is the number of claimed jobs waiting for a worker
	BufferSize int
	// PollInterval is how often ready jobs are claimed from the database
	PollInterval time.Duration
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// StaleAfter is the age of a started job after which it is considered
	// abandoned by a killed process and put back to pending. It must exceed
	// JobTimeout.
	StaleAfter time.Duration
	// RetryDelay is the base delay of retried jobs, doubled per attempt
	RetryDelay time.Duration
	// MaxRetryDelay caps the retry delay
	MaxRetryDelay time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Workers:       4,
		BufferSize:    100,
		PollInterval:  5 * time.Second,
		JobTimeout:    15 * time.Minute,
		StaleAfter:    time.Hour,
		RetryDelay:    10 * time.Second,
		MaxRetryDelay: 30 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 || c.BufferSize <= 0 {
		return ErrInvalidConfig
	}
	if c.PollInterval <= 0 || c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.StaleAfter <= c.JobTimeout {
		return ErrInvalidConfig
	}
	if c.RetryDelay <= 0 || c.MaxRetryDelay < c.RetryDelay {
		return ErrInvalidConfig
	}
	return nil
}

// Option configures a WorkerPool
type Option func(*WorkerPool)

// WithNotifier publishes the final state of every job
func WithNotifier(n Notifier) Option {
	return func(p *WorkerPool) {
		p.notifier = n
	}
}

// WithRecorder records metrics of every job run
func WithRecorder(r Recorder) Option {
	return func(p *WorkerPool) {
		p.recorder = r
	}
}

// WorkerPool claims ready jobs from the job repository and runs them.
// Jobs failing with a RetryableJobError are postponed with a backoff until
// their attempts are exhausted.
type WorkerPool struct {
	config   Config
	jobs     connector.JobRepository
	runner   Runner
	notifier Notifier
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time

	queue     chan connector.Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(config Config, jobs connector.JobRepository, runner Runner, logger *zap.Logger, opts ...Option) (*WorkerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &WorkerPool{
		config: config,
		jobs:   jobs,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start resets the stale started jobs, then starts the workers and the
// poll loop
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	if err := p.reclaim(ctx); err != nil {
		p.mu.Lock()
		p.isRunning = false
		p.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.queue = make(chan connector.Job, p.config.BufferSize)

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.wg.Add(1)
	go p.pollLoop(ctx)

	p.logger.Info("Job worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)
	return nil
}

// Stop stops polling and waits for the running jobs. Claimed jobs that did
// not start are put back to pending.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.releaseQueued(ctx)
		p.logger.Info("Job worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Job worker pool stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the pool is started
func (p *WorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning
}

func (p *WorkerPool) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	staleTicker := time.NewTicker(p.config.StaleAfter / 2)
	defer staleTicker.Stop()

	p.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.dispatch(ctx)
		case <-staleTicker.C:
			if err := p.reclaim(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("Failed to reset stale jobs", zap.Error(err))
			}
		}
	}
}

// reclaim puts the jobs started longer than StaleAfter ago back to pending.
// A running job is cancelled after JobTimeout, so these jobs belong to a
// process that died.
func (p *WorkerPool) reclaim(ctx context.Context) error {
	reset, err := p.jobs.ResetStarted(ctx, p.now().Add(-p.config.StaleAfter))
	if err != nil {
		return err
	}
	if reset > 0 {
		p.logger.Warn("Stale jobs put back to pending", zap.Int64("jobs", reset))
	}
	return nil
}

// releaseQueued puts the claimed jobs no worker picked up back to pending
func (p *WorkerPool) releaseQueued(ctx context.Context) {
	saveCtx := context.WithoutCancel(ctx)
	for {
		select {
		case job := <-p.queue:
			job.Release()
			if err := p.jobs.Save(saveCtx, &job); err != nil {
				p.logger.Error("Failed to release job", logger.Job(job.ID), zap.Error(err))
			}
		default:
			return
		}
	}
}

// dispatch claims as many ready jobs as the buffer has room for
func (p *WorkerPool) dispatch(ctx context.Context) {
	free := cap(p.queue) - len(p.queue)
	if free <= 0 {
		return
	}
	jobs, err := p.jobs.ClaimReady(ctx, p.now(), free)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("Failed to claim ready jobs", zap.Error(err))
		}
		return
	}
	for _, job := range jobs {
		select {
		case p.queue <- job:
		case <-ctx.Done():
			return
		}
	}
}

func (p *WorkerPool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.logger.Debug("Job worker started", zap.Int("worker_id", workerID))
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Job worker stopping", zap.Int("worker_id", workerID))
			return
		case job := <-p.queue:
			p.process(ctx, &job)
		}
	}
}

// RunPending claims the ready jobs and runs them one after the other in the
// calling goroutine. It returns the number of jobs run.
func (p *WorkerPool) RunPending(ctx context.Context, limit int) (int, error) {
	jobs, err := p.jobs.ClaimReady(ctx, p.now(), limit)
	if err != nil {
		return 0, err
	}
	for i := range jobs {
		p.process(ctx, &jobs[i])
	}
	return len(jobs), nil
}

// process runs a claimed job and stores its outcome
func (p *WorkerPool) process(ctx context.Context, job *connector.Job) {
	log := p.logger.With(
		logger.Job(job.ID),
		logger.Backend(job.BackendID),
		logger.Model(job.Model),
		zap.String("method", string(job.Method)),
		zap.Int("attempt", job.Attempts),
	)
	saveCtx := context.WithoutCancel(ctx)
	if ctx.Err() != nil {
		job.Release()
		if err := p.jobs.Save(saveCtx, job); err != nil {
			log.Error("Failed to release job", zap.Error(err))
		}
		return
	}
	log.Debug("Processing job")

	// the lease of a job waiting in the buffer starts when it runs
	start := time.Now()
	job.StartedAt = &start
	if err := p.jobs.Save(ctx, job); err != nil {
		log.Error("Failed to save job", zap.Error(err))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	result, err := p.runner.RunJob(jobCtx, job)
	cancel()

	p.settle(job, result, err)
	if p.recorder != nil {
		p.recorder.RecordJob(ctx, job.Model, string(job.Method), string(job.Status), time.Since(start))
	}
	switch job.Status {
	case connector.JobStatusDone:
		log.Info("Job done", zap.String("result", job.Result))
	case connector.JobStatusPending:
		log.Warn("Job postponed", zap.Timep("eta", job.ETA), zap.Error(err))
	default:
		log.Error("Job failed", zap.Error(err))
	}

	// the outcome is stored even when the pool is stopping
	if err := p.jobs.Save(saveCtx, job); err != nil {
		log.Error("Failed to save job", zap.Error(err))
		return
	}
	if p.notifier != nil && job.Status != connector.JobStatusPending {
		if err := p.notifier.Notify(saveCtx, job); err != nil {
			log.Warn("Failed to notify job state", zap.Error(err))
		}
	}
}

// settle sets the state of a job from the outcome of its run
func (p *WorkerPool) settle(job *connector.Job, result string, err error) {
	if err == nil {
		job.Done(result)
		return
	}
	if connector.IsNothingToDo(err) {
		job.Done(err.Error())
		return
	}
	if retryable, ok := connector.IsRetryable(err); ok && job.CanRetry() {
		delay := retryable.RetryAfter
		if delay <= 0 {
			delay = connector.RetryBackoff(job.Attempts, p.config.RetryDelay, p.config.MaxRetryDelay)
		}
		job.Postpone(delay, err.Error())
		return
	}
	job.Fail(err.Error())
}
