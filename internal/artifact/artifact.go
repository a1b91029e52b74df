// Package artifact persists capture outputs: the composited page image and
// the extracted text.
package artifact

import (
	"context"
	"path"
)

// Store writes named blobs and returns a URI for each.
type Store interface {
	// Put writes data under key. Writing a key that already exists is not
	// an error; the existing object is kept.
	Put(ctx context.Context, key, contentType string, data []byte) (uri string, err error)
}

// Object names used for a job's artifacts.
const (
	ImageName = "page.png"
	TextName  = "text.txt"
)

// JobKey returns the key of a job's artifact.
func JobKey(jobID, name string) string {
	return path.Join("jobs", jobID, name)
}

// Nop discards everything. Put returns an empty URI.
type Nop struct{}

// Put implements Store.
func (Nop) Put(context.Context, string, string, []byte) (string, error) {
	return "", nil
}
