package pageocr

import (
	"bytes"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// DefaultChunkHeight is the tallest image, in pixels, sent to a vision
// backend in one request.
const DefaultChunkHeight = 4000

// Chunk is one height-bounded slice of an image, encoded as PNG unless it
// is the unmodified source.
type Chunk struct {
	Index  int
	Image  []byte
	Height int
}

// SplitImage splits encoded image data into chunks of at most maxHeight
// rows, tiling forward from the top; only the last chunk may be shorter.
// A non-positive maxHeight means DefaultChunkHeight.
//
// Images no taller than maxHeight come back as a single chunk holding data
// itself. So do images whose dimensions cannot be read.
func SplitImage(data []byte, maxHeight int) ([]Chunk, error) {
	if maxHeight <= 0 {
		maxHeight = DefaultChunkHeight
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return []Chunk{{Index: 0, Image: data, Height: cfg.Height}}, nil
	}
	if cfg.Height <= maxHeight {
		return []Chunk{{Index: 0, Image: data, Height: cfg.Height}}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pageocr: decoding image for chunking: %w", err)
	}
	return ChunkImage(img, maxHeight)
}

// ChunkImage slices a decoded image into PNG chunks of at most maxHeight
// rows. Unlike SplitImage it always re-encodes.
func ChunkImage(img image.Image, maxHeight int) ([]Chunk, error) {
	if maxHeight <= 0 {
		maxHeight = DefaultChunkHeight
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidGeometry)
	}

	n := (b.Dy() + maxHeight - 1) / maxHeight
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		top := b.Min.Y + i*maxHeight
		bottom := min(b.Max.Y, top+maxHeight)

		tile := image.NewRGBA(image.Rect(0, 0, b.Dx(), bottom-top))
		draw.Draw(tile, tile.Bounds(), img, image.Pt(b.Min.X, top), draw.Src)

		data, err := encodePNG(tile)
		if err != nil {
			return nil, fmt.Errorf("pageocr: chunk %d: %w", i, err)
		}
		chunks = append(chunks, Chunk{Index: i, Image: data, Height: bottom - top})
	}
	return chunks, nil
}
