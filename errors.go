package pageocr

import (
	"errors"

	"github.com/porticus-lab/go-page-ocr/vision"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Capturer].
	ErrClosed = errors.New("pageocr: capturer is closed")

	// ErrInvalidGeometry is returned when a page reports non-positive
	// dimensions or scale.
	ErrInvalidGeometry = errors.New("pageocr: invalid page geometry")

	// ErrNoSegments is returned by [Composite] when given no segments.
	ErrNoSegments = errors.New("pageocr: no segments to composite")

	// ErrSegmentWidth is returned by [Composite] when a segment's width does
	// not match the canvas. The whole composite is unusable.
	ErrSegmentWidth = errors.New("pageocr: segment width does not match viewport")

	// ErrNoChunks is returned by [OCR.ExtractChunks] when given no chunks.
	ErrNoChunks = errors.New("pageocr: no chunks to extract")

	// ErrNilBackend is returned by [NewOCR] when no vision backend is given.
	ErrNilBackend = errors.New("pageocr: nil vision backend")

	// ErrMissingCredentials is returned when a vision backend cannot be
	// created for lack of an API key or project.
	ErrMissingCredentials = vision.ErrMissingCredentials
)
