package pageocr

import (
	"fmt"
	"math"
)

// PageGeometry describes a page measured once per capture. Heights and
// widths are CSS pixels; ScaleFactor converts them to device pixels.
type PageGeometry struct {
	TotalHeight    int
	ViewportHeight int
	ViewportWidth  int
	ScaleFactor    float64
}

// Validate reports whether the geometry can be segmented and composited.
func (g PageGeometry) Validate() error {
	if g.TotalHeight <= 0 || g.ViewportHeight <= 0 || g.ViewportWidth <= 0 {
		return fmt.Errorf("%w: total=%d viewport=%dx%d",
			ErrInvalidGeometry, g.TotalHeight, g.ViewportWidth, g.ViewportHeight)
	}
	if g.ScaleFactor <= 0 || math.IsNaN(g.ScaleFactor) || math.IsInf(g.ScaleFactor, 0) {
		return fmt.Errorf("%w: scale factor %v", ErrInvalidGeometry, g.ScaleFactor)
	}
	return nil
}

// resolved returns g with a zero ScaleFactor replaced by 1.
func (g PageGeometry) resolved() PageGeometry {
	if g.ScaleFactor == 0 {
		g.ScaleFactor = 1
	}
	return g
}

// SegmentCount returns ceil(TotalHeight / ViewportHeight), and at least 1.
func (g PageGeometry) SegmentCount() int {
	if g.ViewportHeight <= 0 || g.TotalHeight <= g.ViewportHeight {
		return 1
	}
	return (g.TotalHeight + g.ViewportHeight - 1) / g.ViewportHeight
}

// SegmentOffsets returns the scroll offsets that cover the page with
// viewport-sized segments. Offset i is i*ViewportHeight except the last,
// which is pinned to the bottom at max(0, TotalHeight-ViewportHeight).
//
// For a 2500px page and an 800px viewport the offsets are
// [0, 800, 1600, 1700].
func (g PageGeometry) SegmentOffsets() []int {
	n := g.SegmentCount()
	offsets := make([]int, n)
	for i := 0; i < n-1; i++ {
		offsets[i] = i * g.ViewportHeight
	}
	offsets[n-1] = max(0, g.TotalHeight-g.ViewportHeight)
	return offsets
}

// CanvasSize returns the composite image size in device pixels.
func (g PageGeometry) CanvasSize() (width, height int) {
	g = g.resolved()
	return scaled(g.ViewportWidth, g.ScaleFactor), scaled(g.TotalHeight, g.ScaleFactor)
}

// pasteOffset returns the device-pixel row where segment i of n is drawn.
// The last segment is pinned to the canvas bottom, mirroring SegmentOffsets.
func (g PageGeometry) pasteOffset(i, n int) int {
	g = g.resolved()
	if i < n-1 {
		return scaled(i*g.ViewportHeight, g.ScaleFactor)
	}
	return max(0, scaled(g.TotalHeight, g.ScaleFactor)-scaled(g.ViewportHeight, g.ScaleFactor))
}

func scaled(px int, s float64) int {
	return int(math.Round(float64(px) * s))
}
