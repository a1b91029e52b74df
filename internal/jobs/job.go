// Package jobs runs capture-and-OCR jobs in the background and tracks their
// status for the HTTP API.
package jobs

import (
	"errors"
	"slices"
	"time"
)

// Status is the lifecycle state of a Job.
type Status string

// Job states, in pipeline order. StatusDone and StatusError are terminal.
const (
	StatusQueued     Status = "queued"
	StatusCapturing  Status = "capturing"
	StatusExtracting Status = "extracting"
	StatusCleaning   Status = "cleaning"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether no further updates will follow.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Errors returned by stores and the supervisor.
var (
	ErrNotFound   = errors.New("jobs: job not found")
	ErrExists     = errors.New("jobs: job already exists")
	ErrBusy       = errors.New("jobs: too many jobs in progress")
	ErrClosed     = errors.New("jobs: supervisor is closed")
	ErrInvalidURL = errors.New("jobs: invalid URL")
)

// Job is the externally visible state of one capture request.
type Job struct {
	ID       string   `json:"jobId"`
	URL      string   `json:"url"`
	Status   Status   `json:"status"`
	Progress int      `json:"progress"`
	OCRText  string   `json:"ocrText,omitempty"`
	Model    string   `json:"model,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`

	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	ImageURI string `json:"imageUri,omitempty"`
	TextURI  string `json:"textUri,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	c := *j
	c.Warnings = slices.Clone(j.Warnings)
	return &c
}

// advance moves progress forward; it never goes back.
func (j *Job) advance(status Status, progress int) {
	j.Status = status
	if progress > j.Progress {
		j.Progress = min(progress, 100)
	}
}
