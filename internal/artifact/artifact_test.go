package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

func TestJobKey(t *testing.T) {
	assert.Equal(t, "jobs/abc/page.png", JobKey("abc", ImageName))
	assert.Equal(t, "jobs/abc/text.txt", JobKey("abc", TextName))
}

func TestDir_Put(t *testing.T) {
	root := t.TempDir()
	d, err := NewDir(root, zap.NewNop())
	require.NoError(t, err)

	uri, err := d.Put(context.Background(), JobKey("j1", TextName), "text/plain", []byte("体重60kg"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))

	got, err := os.ReadFile(filepath.Join(root, "jobs", "j1", "text.txt"))
	require.NoError(t, err)
	assert.Equal(t, "体重60kg", string(got))

	// A second write keeps the first object.
	uri2, err := d.Put(context.Background(), JobKey("j1", TextName), "text/plain", []byte("other"))
	require.NoError(t, err)
	assert.Equal(t, uri, uri2)
	got, err = os.ReadFile(filepath.Join(root, "jobs", "j1", "text.txt"))
	require.NoError(t, err)
	assert.Equal(t, "体重60kg", string(got))

	entries, err := os.ReadDir(filepath.Join(root, "jobs", "j1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDir_RejectsEscapingKeys(t *testing.T) {
	d, err := NewDir(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	_, err = d.Put(context.Background(), "../outside.txt", "text/plain", []byte("x"))
	assert.Error(t, err)
}

func TestDir_CancelledContext(t *testing.T) {
	d, err := NewDir(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Put(ctx, "k", "text/plain", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNop(t *testing.T) {
	var s Store = Nop{}
	uri, err := s.Put(context.Background(), "k", "text/plain", []byte("x"))
	assert.NoError(t, err)
	assert.Empty(t, uri)
}

func TestAlreadyExists(t *testing.T) {
	assert.True(t, alreadyExists(fmt.Errorf("close: %w", &googleapi.Error{Code: 412})))
	assert.False(t, alreadyExists(&googleapi.Error{Code: 403}))
	assert.False(t, alreadyExists(fmt.Errorf("plain")))
}
