// Package scheduler runs the recurring backend actions on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BackendProvider lists the backends the scheduled actions run for
type BackendProvider interface {
	ActiveBackendIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ActionFunc runs a scheduled action for one backend
type ActionFunc func(ctx context.Context, backendID uuid.UUID) error

// Task is a named action with its cron spec
type Task struct {
	Name string
	Spec string
	Run  ActionFunc
}

// Config holds scheduler configuration
type Config struct {
	// MaxParallel is the number of backends an action runs for concurrently
	MaxParallel int
	// RunTimeout bounds one tick of an action over all backends
	RunTimeout time.Duration
	// Location is the time zone of the cron specs
	Location *time.Location
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxParallel: 2,
		RunTimeout:  30 * time.Minute,
		Location:    time.Local,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxParallel <= 0 || c.RunTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// specParser accepts standard five field specs, an optional leading seconds
// field and descriptors like @hourly or @every 10m
var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler triggers the tasks on their cron specs. A tick that is still
// running when the next one fires is skipped.
type Scheduler struct {
	config   Config
	provider BackendProvider
	tasks    map[string]Task
	logger   *zap.Logger

	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	isRunning bool
}

// New creates a scheduler. Tasks with an empty spec are disabled.
func New(config Config, provider BackendProvider, logger *zap.Logger, tasks ...Task) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	cronLog := cronLogger{logger.Sugar()}
	s := &Scheduler{
		config:   config,
		provider: provider,
		tasks:    make(map[string]Task, len(tasks)),
		logger:   logger,
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLocation(config.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
	}

	for _, task := range tasks {
		if task.Spec == "" {
			logger.Info("Scheduled action disabled", zap.String("task", task.Name))
			continue
		}
		if _, exists := s.tasks[task.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate task %s", ErrInvalidConfig, task.Name)
		}
		task := task
		s.tasks[task.Name] = task
		job := cron.NewChain(cron.SkipIfStillRunning(cronLog)).Then(cron.FuncJob(func() {
			s.tick(task)
		}))
		if _, err := s.cron.AddJob(task.Spec, job); err != nil {
			return nil, fmt.Errorf("%w: task %s: %v", ErrInvalidSpec, task.Name, err)
		}
	}
	return s, nil
}

// Tasks returns the names of the enabled tasks
func (s *Scheduler) Tasks() []string {
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}

// Start starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.logger.Info("Scheduler started",
		zap.Int("tasks", len(s.tasks)),
		zap.Int("max_parallel", s.config.MaxParallel),
	)
	return nil
}

// Stop stops the cron loop, cancels the running ticks and waits for them
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	stopped := s.cron.Stop()
	cancel()

	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger runs a task now, over every active backend, and waits for it
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	task, ok := s.tasks[name]
	if !ok {
		return ErrTaskNotFound
	}
	return s.run(ctx, task)
}

func (s *Scheduler) tick(task Task) {
	s.mu.Lock()
	base := s.ctx
	s.mu.Unlock()
	if base == nil || base.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(base, s.config.RunTimeout)
	defer cancel()
	if err := s.run(ctx, task); err != nil {
		s.logger.Error("Scheduled action failed", zap.String("task", task.Name), zap.Error(err))
	}
}

// run fans the task out over the active backends. A failing backend does
// not stop the others; the errors are joined.
func (s *Scheduler) run(ctx context.Context, task Task) error {
	backendIDs, err := s.provider.ActiveBackendIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active backends: %w", err)
	}
	if len(backendIDs) == 0 {
		return nil
	}

	start := time.Now()
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(s.config.MaxParallel)
	for _, id := range backendIDs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := task.Run(ctx, id); err != nil {
				s.logger.Warn("Scheduled action failed for backend",
					zap.String("task", task.Name),
					zap.String("backend_id", id.String()),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("backend %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Scheduled action finished",
		zap.String("task", task.Name),
		zap.Int("backends", len(backendIDs)),
		zap.Int("failed", len(errs)),
		zap.Duration("duration", time.Since(start)),
	)
	return errors.Join(errs...)
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
