package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/porticus-lab/go-page-ocr/internal/log"
)

// Runner executes the work of one job. It reports intermediate state
// through update; the supervisor records the terminal state itself.
type Runner interface {
	Run(ctx context.Context, job *Job, update UpdateFunc) error
}

// UpdateFunc applies a mutation to the stored job.
type UpdateFunc func(mutate func(*Job))

// Config controls a Supervisor.
type Config struct {
	// MaxConcurrent is the number of jobs that may run at once. Submissions
	// beyond it fail with ErrBusy.
	MaxConcurrent int

	// Retention is how long a finished job stays readable.
	Retention time.Duration

	Logger *zap.Logger
}

// Supervisor accepts capture jobs and runs them on a bounded worker pool.
type Supervisor struct {
	store     Store
	runner    Runner
	pool      *ants.Pool
	retention time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	done   map[string]chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewSupervisor creates a Supervisor. The store is not owned by the
// supervisor and is left open by Close.
func NewSupervisor(store Store, runner Runner, cfg Config) (*Supervisor, error) {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Named("jobs")
	}

	pool, err := ants.NewPool(cfg.MaxConcurrent,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logger.Error("job worker panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create job pool: %w", err)
	}

	return &Supervisor{
		store:     store,
		runner:    runner,
		pool:      pool,
		retention: cfg.Retention,
		logger:    logger,
		done:      make(map[string]chan struct{}),
	}, nil
}

// Submit registers a job for rawURL and starts it in the background. The
// returned job is in StatusQueued.
func (s *Supervisor) Submit(ctx context.Context, rawURL string) (*Job, error) {
	if err := checkURL(rawURL); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, job); err != nil {
		s.wg.Done()
		return nil, err
	}

	ch := make(chan struct{})
	s.mu.Lock()
	s.done[job.ID] = ch
	s.mu.Unlock()

	err := s.pool.Submit(func() { s.execute(job.Clone(), ch) })
	if err != nil {
		s.mu.Lock()
		delete(s.done, job.ID)
		s.mu.Unlock()
		s.wg.Done()
		if derr := s.store.Delete(context.WithoutCancel(ctx), job.ID); derr != nil {
			s.logger.Warn("discard rejected job", zap.String("job", job.ID), zap.Error(derr))
		}
		if errors.Is(err, ants.ErrPoolOverload) {
			return nil, ErrBusy
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("jobs: submit: %w", err)
	}

	s.logger.Info("job queued", zap.String("job", job.ID), zap.String("url", rawURL))
	return job, nil
}

// Get returns the current state of a job.
func (s *Supervisor) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// Wait blocks until the job reaches a terminal state or ctx is done.
func (s *Supervisor) Wait(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	ch, ok := s.done[id]
	s.mu.Unlock()

	if ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	j, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !j.Status.Terminal() {
		// Running in another process sharing the store.
		return nil, fmt.Errorf("jobs: job %s is not tracked by this supervisor", id)
	}
	return j, nil
}

// Running reports the number of jobs currently executing.
func (s *Supervisor) Running() int {
	return s.pool.Running()
}

// Close stops accepting jobs and waits for running ones to finish.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	s.pool.Release()
	return nil
}

func (s *Supervisor) execute(job *Job, done chan struct{}) {
	defer s.wg.Done()

	// Jobs outlive the request that submitted them.
	ctx := context.Background()
	logger := s.logger.With(zap.String("job", job.ID))
	start := time.Now()

	update := func(mutate func(*Job)) {
		_, err := s.store.Update(ctx, job.ID, func(j *Job) {
			mutate(j)
			j.UpdatedAt = time.Now().UTC()
		})
		if err != nil {
			logger.Warn("update job", zap.Error(err))
		}
	}

	err := s.runSafely(ctx, job, update)
	if err != nil {
		logger.Error("job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		update(func(j *Job) {
			j.Status = StatusError
			j.Error = err.Error()
		})
	} else {
		logger.Info("job done", zap.Duration("elapsed", time.Since(start)))
	}

	if err := s.store.Expire(ctx, job.ID, s.retention); err != nil {
		logger.Warn("schedule job expiry", zap.Error(err))
	}

	// The store holds the terminal state before waiters are released.
	close(done)
	s.mu.Lock()
	delete(s.done, job.ID)
	s.mu.Unlock()
}

func (s *Supervisor) runSafely(ctx context.Context, job *Job, update UpdateFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("jobs: job panicked: %v", p)
		}
	}()
	return s.runner.Run(ctx, job, update)
}

func checkURL(rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
