package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	j := &Job{ID: "a", URL: "https://example.com", Status: StatusQueued, Warnings: []string{"w"}}
	require.NoError(t, s.Create(ctx, j))
	assert.ErrorIs(t, s.Create(ctx, j), ErrExists)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, j, got)

	// Returned jobs are copies.
	got.Warnings[0] = "changed"
	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "w", again.Warnings[0])

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Create(ctx, &Job{ID: "a", Status: StatusQueued}))
	got, err := s.Update(ctx, "a", func(j *Job) { j.advance(StatusCapturing, 20) })
	require.NoError(t, err)
	assert.Equal(t, StatusCapturing, got.Status)
	assert.Equal(t, 20, got.Progress)

	got, err = s.Update(ctx, "a", func(j *Job) { j.advance(StatusExtracting, 10) })
	require.NoError(t, err)
	assert.Equal(t, StatusExtracting, got.Status)
	assert.Equal(t, 20, got.Progress, "progress must not go back")

	_, err = s.Update(ctx, "missing", func(*Job) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expire(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Create(ctx, &Job{ID: "a"}))
	require.NoError(t, s.Expire(ctx, "a", 10*time.Millisecond))
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Expire(ctx, "a", time.Second), ErrNotFound)
}

func TestMemoryStore_ExpireReplacesTimer(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Create(ctx, &Job{ID: "a"}))
	require.NoError(t, s.Expire(ctx, "a", 10*time.Millisecond))
	require.NoError(t, s.Expire(ctx, "a", time.Hour))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_CloseStopsTimers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, &Job{ID: "a"}))
	require.NoError(t, s.Expire(ctx, "a", 20*time.Millisecond))
	require.NoError(t, s.Close())
	time.Sleep(60 * time.Millisecond)

	_, err := s.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Create(ctx, &Job{ID: "a"}))
	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	assert.Equal(t, 0, s.Len())
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusCapturing, StatusExtracting, StatusCleaning} {
		assert.False(t, s.Terminal(), s)
	}
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusError.Terminal())
}
