package pageocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // segment decoding
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // segment decoding
)

// Segment is one viewport-sized screenshot taken at ScrollOffset (CSS
// pixels). Index is its position top to bottom.
type Segment struct {
	Index        int
	ScrollOffset int
	Image        []byte
}

// Composite stitches segments, in capture order, into one image of exactly
// round(TotalHeight*ScaleFactor) rows on an opaque white canvas. Segment i
// is drawn at round(i*ViewportHeight*ScaleFactor); the last one is pinned to
// the canvas bottom. Later segments overwrite earlier ones where they
// overlap.
//
// Every segment must be exactly round(ViewportWidth*ScaleFactor) pixels
// wide, otherwise ErrSegmentWidth is returned and no image is produced.
func Composite(segments []Segment, g PageGeometry) (*image.RGBA, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	g = g.resolved()
	if err := g.Validate(); err != nil {
		return nil, err
	}

	width, height := g.CanvasSize()
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	n := len(segments)
	for i, seg := range segments {
		src, _, err := image.Decode(bytes.NewReader(seg.Image))
		if err != nil {
			return nil, fmt.Errorf("pageocr: decoding segment %d: %w", i, err)
		}
		b := src.Bounds()
		if b.Dx() != width {
			return nil, fmt.Errorf("%w: segment %d is %dpx wide, want %dpx", ErrSegmentWidth, i, b.Dx(), width)
		}
		y := g.pasteOffset(i, n)
		dst := image.Rect(0, y, width, y+b.Dy())
		draw.Draw(canvas, dst, src, b.Min, draw.Src)
	}
	return canvas, nil
}

// encodePNG encodes img as PNG.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("pageocr: encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
