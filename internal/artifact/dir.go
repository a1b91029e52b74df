package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Dir stores artifacts as files below a root directory.
type Dir struct {
	root   string
	logger *zap.Logger
}

// NewDir creates the root directory if needed.
func NewDir(root string, logger *zap.Logger) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("artifact: resolving %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: creating %s: %w", abs, err)
	}
	return &Dir{root: abs, logger: logger}, nil
}

// Put implements Store. The file is written to a temporary name and
// renamed into place, so readers never see a partial file.
func (d *Dir) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := d.path(key)
	if err != nil {
		return "", err
	}
	uri := "file://" + filepath.ToSlash(dst)

	if _, err := os.Stat(dst); err == nil {
		d.logger.Info("artifact already exists, skipping", zap.String("key", key))
		return uri, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("artifact: stat %s: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("artifact: creating directory for %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("artifact: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("artifact: writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("artifact: closing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("artifact: renaming %s: %w", key, err)
	}
	d.logger.Debug("artifact written", zap.String("uri", uri), zap.String("content_type", contentType),
		zap.Int("bytes", len(data)))
	return uri, nil
}

// path maps key below the root, rejecting keys that escape it.
func (d *Dir) path(key string) (string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(key))
	if p != d.root && !strings.HasPrefix(p, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact: key %q escapes the store root", key)
	}
	return p, nil
}
