package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	pageocr "github.com/porticus-lab/go-page-ocr"
)

// progressObserver renders capture and OCR progress as a terminal bar.
// A fresh bar is started when extraction begins or the total changes.
type progressObserver struct {
	w     io.Writer
	label string
	phase pageocr.Phase
	total int
	bar   *progressbar.ProgressBar
}

func newProgressObserver(w io.Writer, label string) *progressObserver {
	return &progressObserver{w: w, label: label}
}

// OnPhase implements pageocr.Observer.
func (p *progressObserver) OnPhase(ph pageocr.Phase) {
	p.phase = ph
	if ph == pageocr.PhaseExtracting {
		p.finish()
		p.total = 0
	}
	if p.bar != nil {
		p.bar.Describe(p.description())
	}
	if ph == pageocr.PhaseDone {
		p.finish()
	}
}

// OnProgress implements pageocr.Observer.
func (p *progressObserver) OnProgress(completed, total int) {
	if p.bar == nil || total != p.total {
		p.finish()
		p.total = total
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(p.description()),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "│",
				BarEnd:        "│",
			}),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.w) }),
		)
	}
	_ = p.bar.Set(completed)
}

func (p *progressObserver) finish() {
	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
	p.bar = nil
}

func (p *progressObserver) description() string {
	switch p.phase {
	case pageocr.PhaseExtracting:
		return p.label + ": extracting chunks"
	case pageocr.PhaseCleaning:
		return p.label + ": cleaning text"
	case pageocr.PhaseDone:
		return p.label + ": done"
	default:
		return p.label + ": capturing segments"
	}
}
