package pageocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/porticus-lab/go-page-ocr/internal/workpool"
	"github.com/porticus-lab/go-page-ocr/vision"
)

// chunkPrompt is the user turn sent alongside each chunk image.
const chunkPrompt = "Transcribe all text in this image."

// TextResult is the outcome of an OCR run.
type TextResult struct {
	// Text is the cleaned, reading-order text of the whole image.
	Text string `json:"text"`

	// Model identifies the extraction backend's model.
	Model string `json:"model"`

	// Warnings lists non-fatal conditions, such as the image being split
	// or the reflow pass being skipped.
	Warnings []string `json:"warnings,omitempty"`
}

// OCR extracts text from images through a vision backend.
//
// A run splits the image into chunks, extracts each chunk with bounded
// concurrency and retries, joins the texts in chunk order, applies
// [CleanText] and finally asks the model to reflow the result. A failed
// reflow degrades to the rule-cleaned text instead of failing the run.
//
// An OCR is safe for concurrent use.
type OCR struct {
	backend vision.Backend
	cfg     ocrConfig
}

// NewOCR creates an OCR orchestrator over backend.
func NewOCR(backend vision.Backend, opts ...OCROption) (*OCR, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	cfg := defaultOCRConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &OCR{backend: backend, cfg: cfg}, nil
}

// Model returns the extraction backend's model identifier.
func (o *OCR) Model() string {
	return o.backend.Model()
}

// Extract runs OCR over one encoded image, splitting it into chunks when
// it is taller than the configured chunk height. obs may be nil.
func (o *OCR) Extract(ctx context.Context, img []byte, obs Observer) (*TextResult, error) {
	chunks, err := SplitImage(img, o.cfg.chunkHeight)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, chunks, obs)
}

// ExtractChunks runs OCR over images the caller has already split, in
// top-to-bottom order. No further chunking is done.
func (o *OCR) ExtractChunks(ctx context.Context, images [][]byte, obs Observer) (*TextResult, error) {
	if len(images) == 0 {
		return nil, ErrNoChunks
	}
	chunks := make([]Chunk, len(images))
	for i, data := range images {
		chunks[i] = Chunk{Index: i, Image: data}
	}
	return o.run(ctx, chunks, obs)
}

func (o *OCR) run(ctx context.Context, chunks []Chunk, obs Observer) (*TextResult, error) {
	obs = &syncObserver{o: observerOrNop(obs)}
	logger := o.cfg.log().With(zap.String("model", o.backend.Model()), zap.Int("chunks", len(chunks)))
	res := &TextResult{Model: o.backend.Model()}
	if len(chunks) > 1 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("image split into %d chunks for OCR", len(chunks)))
	}

	obs.OnPhase(PhaseExtracting)
	texts, warnings, err := o.extract(ctx, chunks, obs, logger)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)

	obs.OnPhase(PhaseCleaning)
	cleaned := CleanText(strings.Join(texts, "\n\n"))
	res.Text = cleaned

	if o.cfg.reflow && cleaned != "" {
		text, err := o.reflow(ctx, cleaned)
		if err != nil {
			logger.Warn("reflow failed, keeping rule-cleaned text", zap.Error(err))
			res.Warnings = append(res.Warnings, "reflow skipped: "+err.Error())
		} else {
			res.Text = text
		}
	}

	obs.OnPhase(PhaseDone)
	logger.Info("ocr complete", zap.Int("chars", len(res.Text)), zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// extract sends every chunk to the backend and returns the texts in chunk
// order, boilerplate replies normalized to "".
func (o *OCR) extract(ctx context.Context, chunks []Chunk, obs Observer, logger *zap.Logger) ([]string, []string, error) {
	units := make([]workpool.Unit[string], len(chunks))
	for i, c := range chunks {
		units[i] = func(ctx context.Context) (string, error) {
			start := time.Now()
			text, err := o.backend.Generate(ctx, vision.Request{
				Instruction: ExtractionInstruction,
				Text:        chunkPrompt,
				Image:       c.Image,
			})
			if err != nil {
				return "", err
			}
			logger.Debug("chunk extracted", zap.Int("index", i), zap.Int("chars", len(text)),
				zap.Duration("took", time.Since(start)))
			if isNoText(text) {
				return "", nil
			}
			return text, nil
		}
	}

	opts := workpool.Options{
		Limit:      o.cfg.concurrency,
		MaxRetries: o.cfg.maxRetries,
		BaseDelay:  o.cfg.baseDelay,
		Retryable:  vision.IsRetryable,
		OnRetry: func(index, attempt int, delay time.Duration, err error) {
			logger.Warn("retrying chunk", zap.Int("index", index), zap.Int("attempt", attempt),
				zap.Duration("delay", delay), zap.Error(err))
		},
		OnSettled: obs.OnProgress,
	}

	if !o.cfg.partial {
		texts, err := workpool.Run(ctx, units, opts)
		if err != nil {
			logger.Error("extraction failed", zap.Error(err))
			return nil, nil, fmt.Errorf("pageocr: extraction: %w", err)
		}
		return texts, nil, nil
	}

	texts, errs := workpool.RunAll(ctx, units, opts)
	var (
		warnings []string
		failed   []error
	)
	for i, err := range errs {
		if err == nil {
			continue
		}
		logger.Warn("chunk failed, continuing", zap.Int("index", i), zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("chunk %d failed: %v", i, err))
		failed = append(failed, err)
	}
	if len(failed) == len(chunks) {
		return nil, nil, fmt.Errorf("pageocr: extraction: every chunk failed: %w", errors.Join(failed...))
	}
	return texts, warnings, nil
}

// reflow asks the model to tidy line breaks in text. Empty or refusing
// replies are errors so the caller keeps its input.
func (o *OCR) reflow(ctx context.Context, text string) (string, error) {
	b := o.cfg.reflowBackend
	if b == nil {
		b = o.backend
	}
	reply, err := b.Generate(ctx, vision.Request{Instruction: ReflowInstruction, Text: text})
	if err != nil {
		return "", err
	}
	reply = stripCodeFence(reply)
	switch {
	case reply == "":
		return "", errors.New("empty reflow output")
	case isRefusal(reply):
		return "", errors.New("model declined to reflow")
	}
	return reply, nil
}

// syncObserver serializes calls into an Observer.
type syncObserver struct {
	mu sync.Mutex
	o  Observer
}

func (s *syncObserver) OnPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.o.OnPhase(p)
}

func (s *syncObserver) OnProgress(completed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.o.OnProgress(completed, total)
}
