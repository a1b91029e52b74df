package pageocr

import (
	"errors"
	"reflect"
	"testing"
)

func TestSegmentOffsets(t *testing.T) {
	tests := []struct {
		name            string
		total, viewport int
		want            []int
	}{
		{"uneven ratio", 2500, 800, []int{0, 800, 1600, 1700}},
		{"exact multiple", 2400, 800, []int{0, 800, 1600}},
		{"shorter than viewport", 500, 800, []int{0}},
		{"equal to viewport", 800, 800, []int{0}},
		{"one pixel over", 801, 800, []int{0, 1}},
		{"two segments", 1000, 800, []int{0, 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := PageGeometry{TotalHeight: tt.total, ViewportHeight: tt.viewport, ViewportWidth: 1280, ScaleFactor: 1}
			got := g.SegmentOffsets()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SegmentOffsets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSegmentOffsets_Properties(t *testing.T) {
	for total := 1; total <= 3000; total += 37 {
		for _, vh := range []int{1, 7, 300, 800, 1024} {
			g := PageGeometry{TotalHeight: total, ViewportHeight: vh, ViewportWidth: 10, ScaleFactor: 1}
			offsets := g.SegmentOffsets()

			wantN := (total + vh - 1) / vh
			if len(offsets) != wantN {
				t.Fatalf("total=%d vh=%d: %d offsets, want %d", total, vh, len(offsets), wantN)
			}
			for i := 0; i < len(offsets)-1; i++ {
				if offsets[i] != i*vh {
					t.Fatalf("total=%d vh=%d: offset[%d] = %d, want %d", total, vh, i, offsets[i], i*vh)
				}
			}
			if last := offsets[len(offsets)-1]; last != max(0, total-vh) {
				t.Fatalf("total=%d vh=%d: last offset %d, want %d", total, vh, last, max(0, total-vh))
			}
		}
	}
}

func TestPageGeometry_Validate(t *testing.T) {
	valid := PageGeometry{TotalHeight: 100, ViewportHeight: 50, ViewportWidth: 40, ScaleFactor: 2}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	bad := []PageGeometry{
		{TotalHeight: 0, ViewportHeight: 50, ViewportWidth: 40, ScaleFactor: 1},
		{TotalHeight: 100, ViewportHeight: 0, ViewportWidth: 40, ScaleFactor: 1},
		{TotalHeight: 100, ViewportHeight: 50, ViewportWidth: -1, ScaleFactor: 1},
		{TotalHeight: 100, ViewportHeight: 50, ViewportWidth: 40, ScaleFactor: 0},
	}
	for _, g := range bad {
		if err := g.Validate(); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidGeometry", g, err)
		}
	}
}

func TestCanvasSize(t *testing.T) {
	tests := []struct {
		g    PageGeometry
		w, h int
	}{
		{PageGeometry{TotalHeight: 2500, ViewportHeight: 800, ViewportWidth: 1280, ScaleFactor: 1}, 1280, 2500},
		{PageGeometry{TotalHeight: 2500, ViewportHeight: 800, ViewportWidth: 1280, ScaleFactor: 2}, 2560, 5000},
		{PageGeometry{TotalHeight: 1001, ViewportHeight: 400, ViewportWidth: 8, ScaleFactor: 1.25}, 10, 1251},
		{PageGeometry{TotalHeight: 333, ViewportHeight: 100, ViewportWidth: 3, ScaleFactor: 1.5}, 5, 500},
	}
	for _, tt := range tests {
		w, h := tt.g.CanvasSize()
		if w != tt.w || h != tt.h {
			t.Errorf("CanvasSize(%+v) = %dx%d, want %dx%d", tt.g, w, h, tt.w, tt.h)
		}
	}
}

func TestPasteOffset_LastPinnedToBottom(t *testing.T) {
	g := PageGeometry{TotalHeight: 1001, ViewportHeight: 400, ViewportWidth: 8, ScaleFactor: 1.25}
	n := g.SegmentCount()
	if n != 3 {
		t.Fatalf("SegmentCount() = %d, want 3", n)
	}
	want := []int{0, 500, 751}
	for i := 0; i < n; i++ {
		if got := g.pasteOffset(i, n); got != want[i] {
			t.Errorf("pasteOffset(%d) = %d, want %d", i, got, want[i])
		}
	}
}
