package pageocr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// Result holds a captured full-page PNG and provides helpers for common
// output formats such as raw bytes, base64 encoding, and streaming readers.
//
// It is safe to call its methods multiple times; the underlying data is
// never modified.
type Result struct {
	data []byte

	// URL is the captured address.
	URL string

	// Width and Height of the image in device pixels.
	Width  int
	Height int

	// Geometry is the page measurement the capture was based on.
	Geometry PageGeometry

	// Neutralized counts the fixed and sticky elements that were rewritten
	// before capture.
	Neutralized NeutralizeCounts

	segments []Segment
}

// NewResult wraps an already encoded image, for example one read back from
// disk. Width and Height are taken from the image header.
func NewResult(data []byte) (*Result, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pageocr: reading image header: %w", err)
	}
	return &Result{
		data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
		Geometry: PageGeometry{
			TotalHeight:    cfg.Height,
			ViewportHeight: cfg.Height,
			ViewportWidth:  cfg.Width,
			ScaleFactor:    1,
		},
	}, nil
}

// Bytes returns the raw PNG content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Base64 returns the PNG encoded as a standard base64 string (RFC 4648).
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.data)
}

// Reader returns an [*bytes.Reader] over the PNG content.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full PNG content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes the PNG to the file at path, creating it if needed.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, r.data, perm)
}

// Len returns the size of the PNG in bytes.
func (r *Result) Len() int {
	return len(r.data)
}

// Segments returns the number of viewport screenshots the image was
// composited from.
func (r *Result) Segments() int {
	return len(r.segments)
}

// Chunks splits the image for OCR; see [SplitImage].
func (r *Result) Chunks(maxHeight int) ([]Chunk, error) {
	return SplitImage(r.data, maxHeight)
}

// SegmentImages returns the original viewport screenshots in order, with
// the rows the last one shares with its predecessor cut off. Feeding them
// to [OCR.ExtractChunks] avoids re-encoding the composite.
func (r *Result) SegmentImages() ([][]byte, error) {
	n := len(r.segments)
	out := make([][]byte, n)
	for i, s := range r.segments {
		out[i] = s.Image
	}
	if n < 2 {
		return out, nil
	}

	g := r.Geometry.resolved()
	prevEnd := g.pasteOffset(n-2, n) + scaled(g.ViewportHeight, g.ScaleFactor)
	overlap := prevEnd - g.pasteOffset(n-1, n)
	if overlap <= 0 {
		return out, nil
	}

	last, _, err := image.Decode(bytes.NewReader(r.segments[n-1].Image))
	if err != nil {
		return nil, fmt.Errorf("pageocr: decoding last segment: %w", err)
	}
	b := last.Bounds()
	if overlap >= b.Dy() {
		return out[:n-1], nil
	}
	tile := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()-overlap))
	draw.Draw(tile, tile.Bounds(), last, image.Pt(b.Min.X, b.Min.Y+overlap), draw.Src)
	if out[n-1], err = encodePNG(tile); err != nil {
		return nil, err
	}
	return out, nil
}

// Thumbnail returns a PNG scaled down to at most maxWidth pixels wide,
// preserving the aspect ratio. Images already narrow enough are returned
// as is.
func (r *Result) Thumbnail(maxWidth int) ([]byte, error) {
	if maxWidth <= 0 || r.Width <= maxWidth {
		return r.data, nil
	}
	src, _, err := image.Decode(bytes.NewReader(r.data))
	if err != nil {
		return nil, fmt.Errorf("pageocr: decoding image: %w", err)
	}
	b := src.Bounds()
	h := max(1, b.Dy()*maxWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return encodePNG(dst)
}
