package jobs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedisStore connects to the server named by REDIS_ADDR and skips the
// test when it is unset.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisOptions{
		Addr:      addr,
		KeyPrefix: "pageocr-test:" + uuid.NewString() + ":",
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore_Lifecycle(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	j := &Job{ID: "a", URL: "https://example.com", Status: StatusQueued, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.Create(ctx, j))
	assert.ErrorIs(t, s.Create(ctx, j), ErrExists)

	got, err := s.Update(ctx, "a", func(j *Job) {
		j.advance(StatusDone, 100)
		j.OCRText = "hello"
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)

	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.OCRText)
	assert.True(t, j.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, s.Expire(ctx, "a", 50*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, "a")
		return err == ErrNotFound
	}, 2*time.Second, 20*time.Millisecond)

	_, err = s.Update(ctx, "a", func(*Job) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ConcurrentUpdates(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &Job{ID: "a"}))

	const writers = 4
	errc := make(chan error, writers)
	for i := range writers {
		go func() {
			_, err := s.Update(ctx, "a", func(j *Job) {
				j.Warnings = append(j.Warnings, string(rune('a'+i)))
			})
			errc <- err
		}()
	}
	for range writers {
		require.NoError(t, <-errc)
	}

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got.Warnings, writers)
}
