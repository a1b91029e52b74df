package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, job *Job, update UpdateFunc) error

func (f runnerFunc) Run(ctx context.Context, job *Job, update UpdateFunc) error {
	return f(ctx, job, update)
}

func newTestSupervisor(t *testing.T, r Runner, maxConcurrent int) (*Supervisor, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	s, err := NewSupervisor(store, r, Config{
		MaxConcurrent: maxConcurrent,
		Retention:     time.Hour,
		Logger:        zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
		store.Close()
	})
	return s, store
}

func waitFor(t *testing.T, s *Supervisor, id string) *Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	j, err := s.Wait(ctx, id)
	require.NoError(t, err)
	return j
}

func TestSupervisor_SubmitAndWait(t *testing.T) {
	r := runnerFunc(func(_ context.Context, job *Job, update UpdateFunc) error {
		update(func(j *Job) { j.advance(StatusCapturing, 30) })
		update(func(j *Job) {
			j.OCRText = "text of " + job.URL
			j.advance(StatusDone, 100)
		})
		return nil
	})
	s, _ := newTestSupervisor(t, r, 2)

	job, err := s.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusQueued, job.Status)

	got := waitFor(t, s, job.ID)
	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "text of https://example.com", got.OCRText)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	// Waiting on a finished job returns at once.
	again := waitFor(t, s, job.ID)
	assert.Equal(t, got, again)
}

func TestSupervisor_FailedJob(t *testing.T) {
	r := runnerFunc(func(context.Context, *Job, UpdateFunc) error {
		return errors.New("capture: navigation failed")
	})
	s, _ := newTestSupervisor(t, r, 1)

	job, err := s.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)

	got := waitFor(t, s, job.ID)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "capture: navigation failed", got.Error)
}

func TestSupervisor_PanicBecomesError(t *testing.T) {
	r := runnerFunc(func(context.Context, *Job, UpdateFunc) error {
		panic("boom")
	})
	s, _ := newTestSupervisor(t, r, 1)

	job, err := s.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)

	got := waitFor(t, s, job.ID)
	assert.Equal(t, StatusError, got.Status)
	assert.Contains(t, got.Error, "boom")
}

func TestSupervisor_Busy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	r := runnerFunc(func(_ context.Context, _ *Job, update UpdateFunc) error {
		started <- struct{}{}
		<-release
		update(func(j *Job) { j.advance(StatusDone, 100) })
		return nil
	})
	s, store := newTestSupervisor(t, r, 1)
	ctx := context.Background()

	first, err := s.Submit(ctx, "https://example.com/1")
	require.NoError(t, err)
	<-started

	_, err = s.Submit(ctx, "https://example.com/2")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, store.Len(), "rejected job must not be stored")

	close(release)
	got := waitFor(t, s, first.ID)
	assert.Equal(t, StatusDone, got.Status)
}

func TestSupervisor_InvalidURL(t *testing.T) {
	s, _ := newTestSupervisor(t, runnerFunc(func(context.Context, *Job, UpdateFunc) error { return nil }), 1)

	for _, u := range []string{"", "example.com", "ftp://example.com/a", "file:///etc/passwd", "http://"} {
		_, err := s.Submit(context.Background(), u)
		assert.ErrorIs(t, err, ErrInvalidURL, u)
	}
}

func TestSupervisor_CloseWaitsForRunningJobs(t *testing.T) {
	var mu sync.Mutex
	finished := false
	started := make(chan struct{})
	r := runnerFunc(func(_ context.Context, _ *Job, update UpdateFunc) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		finished = true
		mu.Unlock()
		update(func(j *Job) { j.advance(StatusDone, 100) })
		return nil
	})
	store := NewMemoryStore()
	defer store.Close()
	s, err := NewSupervisor(store, r, Config{MaxConcurrent: 1, Logger: zap.NewNop()})
	require.NoError(t, err)

	job, err := s.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	<-started

	require.NoError(t, s.Close())
	mu.Lock()
	assert.True(t, finished)
	mu.Unlock()

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)

	_, err = s.Submit(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}

func TestSupervisor_RetentionExpiresJob(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	r := runnerFunc(func(_ context.Context, _ *Job, update UpdateFunc) error {
		update(func(j *Job) { j.advance(StatusDone, 100) })
		return nil
	})
	s, err := NewSupervisor(store, r, Config{MaxConcurrent: 1, Retention: 20 * time.Millisecond, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer s.Close()

	job, err := s.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	waitFor(t, s, job.ID)

	assert.Eventually(t, func() bool {
		_, err := s.Get(context.Background(), job.ID)
		return errors.Is(err, ErrNotFound)
	}, time.Second, 5*time.Millisecond)
}

func TestSupervisor_WaitUnknown(t *testing.T) {
	s, _ := newTestSupervisor(t, runnerFunc(func(context.Context, *Job, UpdateFunc) error { return nil }), 1)
	_, err := s.Wait(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupervisor_WaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s, _ := newTestSupervisor(t, runnerFunc(func(context.Context, *Job, UpdateFunc) error {
		<-release
		return nil
	}), 1)

	job, err := s.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Wait(ctx, job.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
