// Package vision defines the boundary to the external models that read text
// out of images and reflow extracted text.
//
// A [Backend] is an opaque function: an instruction, optional text and an
// optional image go in, text comes out. Transient failures are recognized by
// [IsRetryable]; retrying them is the caller's business.
package vision

import (
	"context"
	"net/http"
	"strings"
)

// Backend generates text from an instruction plus text and/or image input.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Model returns the identifier of the model that serves requests.
	Model() string

	// Generate runs one request and returns the model's text output.
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one call to a Backend.
type Request struct {
	// Instruction is sent as the system instruction.
	Instruction string

	// Text is the user turn. It may be empty when Image is set.
	Text string

	// Image holds encoded image bytes. Nil for text-only requests.
	Image []byte

	// MIMEType of Image. Detected from the bytes when empty.
	MIMEType string
}

// imageMIME returns the request's image MIME type, sniffing it when unset.
func (r Request) imageMIME() string {
	if r.MIMEType != "" {
		return r.MIMEType
	}
	return DetectMIME(r.Image)
}

// DetectMIME sniffs the MIME type of encoded image bytes, defaulting to
// image/png for anything unrecognized.
func DetectMIME(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/png"
}
