//go:build tesseract

package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is an offline Backend backed by a local Tesseract installation.
// Image requests return the recognized text; text-only requests (reflow) are
// answered with the input unchanged.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract backend for the given languages, for
// example "eng" and "jpn". No languages means Tesseract's default.
func NewTesseract(languages ...string) (*Tesseract, error) {
	return &Tesseract{languages: languages}, nil
}

// Model implements Backend.
func (t *Tesseract) Model() string {
	if len(t.languages) == 0 {
		return "tesseract"
	}
	return "tesseract:" + strings.Join(t.languages, "+")
}

// Generate implements Backend. A fresh client is used per call because
// gosseract clients are not safe for concurrent use.
func (t *Tesseract) Generate(ctx context.Context, req Request) (string, error) {
	if len(req.Image) == 0 {
		return req.Text, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := gosseract.NewClient()
	defer c.Close()

	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return "", fmt.Errorf("vision: tesseract set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(req.Image); err != nil {
		return "", fmt.Errorf("vision: tesseract set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("vision: tesseract recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}
