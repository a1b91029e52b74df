package pageocr

import (
	"time"

	"go.uber.org/zap"

	"github.com/porticus-lab/go-page-ocr/internal/log"
)

// capturerConfig holds internal configuration for a Capturer.
type capturerConfig struct {
	chromePath   string
	autoDownload bool
	timeout      time.Duration
	noSandbox    bool
	headless     string

	viewportWidth  int
	viewportHeight int
	scaleFactor    float64
	settleDelay    time.Duration
	scrollDelay    time.Duration
	maxScrollSteps int

	logger *zap.Logger
}

func defaultConfig() capturerConfig {
	return capturerConfig{
		timeout:        120 * time.Second,
		headless:       "new",
		viewportWidth:  1280,
		viewportHeight: 800,
		scaleFactor:    1,
		settleDelay:    1500 * time.Millisecond,
		scrollDelay:    250 * time.Millisecond,
		maxScrollSteps: 50,
	}
}

// Option configures a [Capturer].
type Option func(*capturerConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *capturerConfig) {
		c.chromePath = path
	}
}

// WithAutoDownload fetches a compatible Chromium build when no executable
// path is configured. The download is cached and reused.
func WithAutoDownload() Option {
	return func(c *capturerConfig) {
		c.autoDownload = true
	}
}

// WithTimeout sets the maximum duration for a single capture.
// Defaults to 120 seconds. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *capturerConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *capturerConfig) {
		c.noSandbox = true
	}
}

// WithViewport sets the CSS pixel size of the emulated viewport.
// Defaults to 1280x800. Non-positive values are ignored.
func WithViewport(width, height int) Option {
	return func(c *capturerConfig) {
		if width > 0 {
			c.viewportWidth = width
		}
		if height > 0 {
			c.viewportHeight = height
		}
	}
}

// WithScaleFactor sets the device scale factor. Defaults to 1.
func WithScaleFactor(s float64) Option {
	return func(c *capturerConfig) {
		if s > 0 {
			c.scaleFactor = s
		}
	}
}

// WithSettleDelay sets how long to wait for dynamic content after
// navigation and after the lazy-load scroll pass.
func WithSettleDelay(d time.Duration) Option {
	return func(c *capturerConfig) {
		c.settleDelay = d
	}
}

// WithScrollDelay sets the pause after each scroll before a screenshot.
func WithScrollDelay(d time.Duration) Option {
	return func(c *capturerConfig) {
		c.scrollDelay = d
	}
}

// WithLogger sets the logger used by the Capturer.
func WithLogger(l *zap.Logger) Option {
	return func(c *capturerConfig) {
		c.logger = l
	}
}

func (c *capturerConfig) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	return log.Named("capture")
}
