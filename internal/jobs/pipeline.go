package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pageocr "github.com/porticus-lab/go-page-ocr"
	"github.com/porticus-lab/go-page-ocr/internal/artifact"
	"github.com/porticus-lab/go-page-ocr/internal/log"
)

// Capturer takes a full-page screenshot. *pageocr.Capturer satisfies it.
type Capturer interface {
	Capture(ctx context.Context, rawURL string, obs pageocr.Observer) (*pageocr.Result, error)
}

// Extractor turns a page image into text. *pageocr.OCR satisfies it.
type Extractor interface {
	Extract(ctx context.Context, img []byte, obs pageocr.Observer) (*pageocr.TextResult, error)
}

// Progress bands of the pipeline stages, in percent.
const (
	progressCaptureStart = 5
	progressCaptureEnd   = 40
	progressExtractEnd   = 90
	progressCleaning     = 90
	progressDone         = 100
)

// Pipeline is the Runner that captures a page, extracts its text and
// stores both as artifacts.
type Pipeline struct {
	capturer  Capturer
	extractor Extractor
	artifacts artifact.Store
	logger    *zap.Logger
}

// NewPipeline creates a Pipeline. A nil artifact store discards outputs.
func NewPipeline(c Capturer, e Extractor, a artifact.Store, logger *zap.Logger) *Pipeline {
	if a == nil {
		a = artifact.Nop{}
	}
	if logger == nil {
		logger = log.Named("pipeline")
	}
	return &Pipeline{capturer: c, extractor: e, artifacts: a, logger: logger}
}

// Run implements Runner.
func (p *Pipeline) Run(ctx context.Context, job *Job, update UpdateFunc) error {
	logger := p.logger.With(zap.String("job", job.ID))

	update(func(j *Job) { j.advance(StatusCapturing, progressCaptureStart) })
	page, err := p.capturer.Capture(ctx, job.URL, pageocr.ObserverFuncs{
		Progress: func(done, total int) {
			pct := band(progressCaptureStart, progressCaptureEnd, done, total)
			update(func(j *Job) { j.advance(StatusCapturing, pct) })
		},
	})
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	logger.Debug("page captured",
		zap.Int("width", page.Width), zap.Int("height", page.Height),
		zap.Int("segments", page.Segments()))

	imageURI, err := p.artifacts.Put(ctx, artifact.JobKey(job.ID, artifact.ImageName), "image/png", page.Bytes())
	if err != nil {
		// Artifacts are a convenience; the OCR result is still delivered.
		logger.Warn("store page image", zap.Error(err))
	}
	update(func(j *Job) {
		j.Width, j.Height = page.Width, page.Height
		j.ImageURI = imageURI
		j.advance(StatusExtracting, progressCaptureEnd)
	})

	text, err := p.extractor.Extract(ctx, page.Bytes(), pageocr.ObserverFuncs{
		Phase: func(ph pageocr.Phase) {
			if ph == pageocr.PhaseCleaning {
				update(func(j *Job) { j.advance(StatusCleaning, progressCleaning) })
			}
		},
		Progress: func(done, total int) {
			pct := band(progressCaptureEnd, progressExtractEnd, done, total)
			update(func(j *Job) { j.advance(StatusExtracting, pct) })
		},
	})
	if err != nil {
		return fmt.Errorf("ocr: %w", err)
	}

	textURI, err := p.artifacts.Put(ctx, artifact.JobKey(job.ID, artifact.TextName), "text/plain; charset=utf-8", []byte(text.Text))
	if err != nil {
		logger.Warn("store text", zap.Error(err))
	}

	update(func(j *Job) {
		j.OCRText = text.Text
		j.Model = text.Model
		j.Warnings = append(j.Warnings, text.Warnings...)
		j.TextURI = textURI
		j.advance(StatusDone, progressDone)
	})
	return nil
}

// band maps done/total onto the range [from, to].
func band(from, to, done, total int) int {
	if total <= 0 {
		return from
	}
	return from + (to-from)*done/total
}
