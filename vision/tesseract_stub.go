//go:build !tesseract

package vision

import "context"

// Tesseract is unavailable in this build.
type Tesseract struct{}

// NewTesseract always fails in builds without the tesseract tag.
func NewTesseract(languages ...string) (*Tesseract, error) {
	return nil, ErrTesseractUnavailable
}

// Model implements Backend.
func (t *Tesseract) Model() string { return "tesseract" }

// Generate implements Backend.
func (t *Tesseract) Generate(ctx context.Context, req Request) (string, error) {
	return "", ErrTesseractUnavailable
}
