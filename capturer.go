package pageocr

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// maxPageHeight caps the measured page height, in CSS pixels, so that
// infinite-scroll pages still produce a bounded image.
const maxPageHeight = 60000

// Capturer captures full web pages as single seamless images.
//
// A Capturer manages a headless browser instance that is reused across
// captures; every capture runs in its own tab. It is safe for concurrent
// use.
//
// Call [Capturer.Close] when the Capturer is no longer needed to release
// browser resources.
type Capturer struct {
	cfg           capturerConfig
	logger        *zap.Logger
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewCapturer creates a Capturer with the given options.
//
// It starts a headless browser in the background. The caller must call
// [Capturer.Close] when finished.
func NewCapturer(opts ...Option) (*Capturer, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	logger := cfg.log()

	if cfg.chromePath == "" && cfg.autoDownload {
		path, err := findBrowser(logger)
		if err != nil {
			return nil, err
		}
		cfg.chromePath = path
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
		chromedp.WindowSize(cfg.viewportWidth, cfg.viewportHeight),
	)
	if cfg.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.chromePath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("pageocr: starting browser: %w", err)
	}

	return &Capturer{
		cfg:           cfg,
		logger:        logger,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Capturer, including the
// browser process. Close is idempotent.
func (c *Capturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.browserCancel()
	c.allocCancel()
	return nil
}

// Capture loads rawURL and returns the whole page as one PNG image.
//
// The page is given time to settle, scrolled once to the bottom to trigger
// lazy loading, has its fixed and sticky elements neutralized, and is then
// captured one viewport at a time and composited. obs may be nil; it sees
// PhaseCapturing followed by one OnProgress call per segment.
func (c *Capturer) Capture(ctx context.Context, rawURL string, obs Observer) (*Result, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	obs = observerOrNop(obs)

	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	logger := c.logger.With(zap.String("url", rawURL))
	obs.OnPhase(PhaseCapturing)

	res, err := c.capture(tabCtx, rawURL, obs, logger)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, context.Cause(ctx))
		}
		return nil, fmt.Errorf("pageocr: capture failed: %w", err)
	}
	return res, nil
}

// CaptureHTML renders an HTML document and captures it like [Capturer.Capture].
// Relative references in html resolve against a temporary directory, so
// inline or absolute resources should be used.
func (c *Capturer) CaptureHTML(ctx context.Context, html string, obs Observer) (*Result, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "pageocr-*.html")
	if err != nil {
		return nil, fmt.Errorf("pageocr: creating temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(html); err != nil {
		f.Close()
		return nil, fmt.Errorf("pageocr: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("pageocr: closing temp file: %w", err)
	}
	return c.CaptureFile(ctx, name, obs)
}

// CaptureFile captures a local HTML file.
func (c *Capturer) CaptureFile(ctx context.Context, path string, obs Observer) (*Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("pageocr: resolving path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("pageocr: %w", err)
	}
	return c.Capture(ctx, "file://"+filepath.ToSlash(abs), obs)
}

func (c *Capturer) capture(ctx context.Context, rawURL string, obs Observer, logger *zap.Logger) (*Result, error) {
	cfg := c.cfg
	if err := chromedp.Run(ctx,
		emulation.SetDeviceMetricsOverride(int64(cfg.viewportWidth), int64(cfg.viewportHeight), cfg.scaleFactor, false),
		emulation.SetScrollbarsHidden(true),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(cfg.settleDelay),
	); err != nil {
		return nil, fmt.Errorf("loading page: %w", err)
	}

	steps, err := c.triggerLazyLoad(ctx)
	if err != nil {
		return nil, fmt.Errorf("lazy-load scroll: %w", err)
	}
	logger.Debug("lazy-load scroll done", zap.Int("steps", steps))

	var counts NeutralizeCounts
	if err := chromedp.Run(ctx, chromedp.Evaluate(neutralizeScript, &counts)); err != nil {
		return nil, fmt.Errorf("neutralizing fixed elements: %w", err)
	}
	logger.Info("neutralized positioned elements", zap.Int("fixed", counts.Fixed), zap.Int("sticky", counts.Sticky))

	var total float64
	if err := chromedp.Run(ctx, chromedp.Evaluate(pageHeightScript, &total)); err != nil {
		return nil, fmt.Errorf("measuring page: %w", err)
	}
	geom := PageGeometry{
		TotalHeight:    int(total),
		ViewportHeight: cfg.viewportHeight,
		ViewportWidth:  cfg.viewportWidth,
		ScaleFactor:    cfg.scaleFactor,
	}
	if geom.TotalHeight > maxPageHeight {
		logger.Warn("page height capped", zap.Int("height", geom.TotalHeight), zap.Int("cap", maxPageHeight))
		geom.TotalHeight = maxPageHeight
	}
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	offsets := geom.SegmentOffsets()
	segments := make([]Segment, 0, len(offsets))
	for i, off := range offsets {
		data, err := c.captureSegment(ctx, off)
		if err != nil {
			return nil, fmt.Errorf("segment %d at offset %d: %w", i, off, err)
		}
		logger.Debug("captured segment", zap.Int("index", i), zap.Int("offset", off), zap.Int("bytes", len(data)))
		segments = append(segments, Segment{Index: i, ScrollOffset: off, Image: data})
		obs.OnProgress(i+1, len(offsets))
	}

	img, err := Composite(segments, geom)
	if err != nil {
		return nil, err
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	logger.Info("page captured",
		zap.Int("width", b.Dx()), zap.Int("height", b.Dy()), zap.Int("segments", len(segments)))

	return &Result{
		data:        data,
		URL:         rawURL,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Geometry:    geom,
		Neutralized: counts,
		segments:    segments,
	}, nil
}

// triggerLazyLoad scrolls down one viewport at a time until the bottom is
// reached or the step limit runs out, then returns to the top and waits for
// the page to settle.
func (c *Capturer) triggerLazyLoad(ctx context.Context) (int, error) {
	steps := 0
	for steps < c.cfg.maxScrollSteps {
		var atBottom bool
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(scrollStepScript, &atBottom),
			chromedp.Sleep(c.cfg.scrollDelay),
		); err != nil {
			return steps, err
		}
		steps++
		if atBottom {
			break
		}
	}
	var y float64
	err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(scrollToScript, 0), &y),
		chromedp.Sleep(c.cfg.settleDelay),
	)
	return steps, err
}

// captureSegment scrolls to offset and screenshots the viewport.
func (c *Capturer) captureSegment(ctx context.Context, offset int) ([]byte, error) {
	var (
		y   float64
		buf []byte
	)
	err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(scrollToScript, offset), &y),
		chromedp.Sleep(c.cfg.scrollDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithFromSurface(true).
				Do(ctx)
			return err
		}),
	)
	return buf, err
}

func (c *Capturer) checkClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func validateURL(rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("pageocr: invalid URL %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	default:
		return fmt.Errorf("pageocr: invalid URL %q: unsupported scheme %q", rawURL, u.Scheme)
	}
}

// --- Package-level convenience functions ---

// Capture captures a web page using a temporary [Capturer].
// This is convenient for one-off captures. For repeated use, create a
// [Capturer] with [NewCapturer] to reuse the browser instance.
func Capture(ctx context.Context, rawURL string, opts ...Option) (*Result, error) {
	c, err := NewCapturer(opts...)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Capture(ctx, rawURL, nil)
}
