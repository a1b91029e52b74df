package pageocr

import (
	"time"

	"go.uber.org/zap"

	"github.com/porticus-lab/go-page-ocr/internal/log"
	"github.com/porticus-lab/go-page-ocr/vision"
)

// Defaults for an [OCR] run.
const (
	DefaultOCRConcurrency = 3
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 2 * time.Second
)

// ocrConfig holds internal configuration for an OCR orchestrator.
type ocrConfig struct {
	chunkHeight int
	concurrency int
	maxRetries  int
	baseDelay   time.Duration

	reflow        bool
	reflowBackend vision.Backend
	partial       bool

	logger *zap.Logger
}

func defaultOCRConfig() ocrConfig {
	return ocrConfig{
		chunkHeight: DefaultChunkHeight,
		concurrency: DefaultOCRConcurrency,
		maxRetries:  DefaultMaxRetries,
		baseDelay:   DefaultRetryBaseDelay,
		reflow:      true,
	}
}

// OCROption configures an [OCR].
type OCROption func(*ocrConfig)

// WithChunkHeight sets the tallest slice, in pixels, sent to the backend.
// Defaults to DefaultChunkHeight.
func WithChunkHeight(px int) OCROption {
	return func(c *ocrConfig) {
		if px > 0 {
			c.chunkHeight = px
		}
	}
}

// WithConcurrency sets how many chunk requests may be in flight at once.
// Defaults to 3.
func WithConcurrency(n int) OCROption {
	return func(c *ocrConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMaxRetries sets the total number of attempts per chunk.
func WithMaxRetries(n int) OCROption {
	return func(c *ocrConfig) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryBaseDelay sets the linear backoff unit. The wait after failed
// attempt k is k times d.
func WithRetryBaseDelay(d time.Duration) OCROption {
	return func(c *ocrConfig) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

// WithReflowBackend sends the reflow pass to b instead of the extraction
// backend.
func WithReflowBackend(b vision.Backend) OCROption {
	return func(c *ocrConfig) {
		c.reflowBackend = b
	}
}

// WithoutReflow skips the model-based reflow pass; the result is the
// rule-cleaned text.
func WithoutReflow() OCROption {
	return func(c *ocrConfig) {
		c.reflow = false
	}
}

// WithPartialResults keeps the text of chunks that succeeded when others
// fail. Failed chunks contribute empty text and a warning, and the run
// errors only when every chunk fails. By default any chunk failure fails
// the whole run.
func WithPartialResults() OCROption {
	return func(c *ocrConfig) {
		c.partial = true
	}
}

// WithOCRLogger sets the logger used by the OCR orchestrator.
func WithOCRLogger(l *zap.Logger) OCROption {
	return func(c *ocrConfig) {
		c.logger = l
	}
}

func (c *ocrConfig) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	return log.Named("ocr")
}
