package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// ErrMissingCredentials is returned by backend constructors when no API key
// or project is configured. It is raised before any request is made.
var ErrMissingCredentials = errors.New("vision: missing credentials")

// ErrEmptyResponse is returned when a backend answers without any text
// candidate.
var ErrEmptyResponse = errors.New("vision: empty response")

// ErrTesseractUnavailable is returned by NewTesseract in builds without the
// tesseract build tag.
var ErrTesseractUnavailable = errors.New("vision: tesseract support not compiled in (build with -tags tesseract)")

// StatusError carries an HTTP status from a backend that does not have its
// own error type.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vision: HTTP %d: %s", e.Code, e.Message)
}

// IsRetryable reports whether err signals a transient backend condition:
// HTTP 429, HTTP 503, service unavailable, or model overload. Everything
// else, including context cancellation, is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Code)
	}
	var oe *openai.Error
	if errors.As(err, &oe) {
		return retryableStatus(oe.StatusCode)
	}
	// The Gemini client returns APIError by value.
	var ge genai.APIError
	if errors.As(err, &ge) {
		return retryableStatus(ge.Code)
	}
	var gae *googleapi.Error
	if errors.As(err, &gae) {
		return retryableStatus(gae.Code)
	}
	return retryableMessage(err.Error())
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// statusToken matches a 429 or 503 that is reported as a status code, not
// one that merely appears inside a port, size or request ID.
var statusToken = regexp.MustCompile(`(?i)\b(?:http|status|error|code)[\s:=]*(?:429|503)\b`)

// retryableMessage is the fallback for errors that only expose text, such
// as gRPC-style status strings from the Gemini client.
func retryableMessage(msg string) bool {
	if statusToken.MatchString(msg) {
		return true
	}
	lower := strings.ToLower(msg)
	for _, signal := range []string{"too many requests", "unavailable", "overload"} {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}
