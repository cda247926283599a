package render

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewFrameRejectsBadDimensions(t *testing.T) {
	if _, err := NewFrame(0, 16); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := NewFrame(32, -1); err == nil {
		t.Error("expected error for negative height")
	}
}

func TestFrameSetAt(t *testing.T) {
	f, err := NewFrame(32, 16)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}

	if !f.Set(3, 5, Red) {
		t.Error("Set(3,5) returned false for in-bounds write")
	}
	got, ok := f.At(3, 5)
	if !ok || got != Red {
		t.Errorf("At(3,5) = %v, %v; want Red, true", got, ok)
	}

	// Last write wins.
	f.Set(3, 5, Blue)
	got, _ = f.At(3, 5)
	if got != Blue {
		t.Errorf("At(3,5) after overwrite = %v, want Blue", got)
	}

	// Out-of-bounds writes are dropped.
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {32, 0}, {0, 16}} {
		if f.Set(p[0], p[1], White) {
			t.Errorf("Set(%d,%d) returned true for out-of-bounds write", p[0], p[1])
		}
	}
	if _, ok := f.At(32, 0); ok {
		t.Error("At(32,0) reported ok for out-of-bounds read")
	}
}

func TestFrameClearAndLitCount(t *testing.T) {
	f, _ := NewFrame(4, 4)
	f.Set(0, 0, Red)
	f.Set(1, 1, Green)
	f.Set(2, 2, Blue)
	if got := f.LitCount(); got != 3 {
		t.Errorf("LitCount = %d, want 3", got)
	}

	f.Clear()
	if got := f.LitCount(); got != 0 {
		t.Errorf("LitCount after Clear = %d, want 0", got)
	}
}

func TestFrameCloneIsIndependent(t *testing.T) {
	f, _ := NewFrame(4, 4)
	f.Set(1, 1, Red)

	clone := f.Clone()
	if !f.Equal(clone) {
		t.Fatal("clone not equal to original")
	}

	clone.Set(1, 1, Blue)
	got, _ := f.At(1, 1)
	if got != Red {
		t.Errorf("original mutated through clone: At(1,1) = %v", got)
	}
}

func TestDiffIdenticalFramesIsEmpty(t *testing.T) {
	f, _ := NewFrame(8, 8)
	f.Set(2, 3, Green)
	f.Set(5, 5, White)

	writes, err := Diff(f, f.Clone())
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(writes) != 0 {
		t.Errorf("Diff of identical frames = %d writes, want 0", len(writes))
	}
}

func TestDiffAgainstNilIsFullPaint(t *testing.T) {
	f, _ := NewFrame(8, 8)
	f.Set(0, 0, Red)
	f.Set(7, 7, Blue)

	writes, err := Diff(nil, f)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	want := []PixelWrite{
		{X: 0, Y: 0, Color: Red},
		{X: 7, Y: 7, Color: Blue},
	}
	if diff := cmp.Diff(want, writes); diff != "" {
		t.Errorf("Diff(nil, f) mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffReportsOnlyChanges(t *testing.T) {
	prev, _ := NewFrame(8, 8)
	prev.Set(1, 1, Red)
	prev.Set(2, 2, Green)

	next := prev.Clone()
	next.Set(2, 2, Blue)  // changed
	next.Set(3, 3, White) // added
	next.Set(1, 1, Red)   // unchanged

	writes, err := Diff(prev, next)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	want := []PixelWrite{
		{X: 2, Y: 2, Color: Blue},
		{X: 3, Y: 3, Color: White},
	}
	if diff := cmp.Diff(want, writes); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffDimensionMismatch(t *testing.T) {
	a, _ := NewFrame(8, 8)
	b, _ := NewFrame(4, 4)
	if _, err := Diff(a, b); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}

func TestFrameJSONRoundTrip(t *testing.T) {
	f, _ := NewFrame(3, 2)
	f.Set(0, 0, Red)
	f.Set(2, 1, Color{R: 0x12, G: 0x34, B: 0x56})

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Frame
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !f.Equal(&back) {
		t.Errorf("round-trip mismatch: %s", data)
	}
}

func TestFrameJSONRejectsCorruptRows(t *testing.T) {
	tests := []string{
		`{"width":2,"height":1,"rows":[]}`,
		`{"width":2,"height":1,"rows":["ff0000"]}`,
		`{"width":2,"height":1,"rows":["zz0000ff0000"]}`,
		`{"width":0,"height":1,"rows":[""]}`,
	}
	for _, tt := range tests {
		var f Frame
		if err := json.Unmarshal([]byte(tt), &f); err == nil {
			t.Errorf("expected error for %s", tt)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	f, _ := NewFrame(4, 2)
	f.Set(0, 0, Red)

	var buf bytes.Buffer
	if err := EncodePNG(&buf, f, 8); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	// PNG signature.
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output does not start with PNG signature")
	}

	if err := EncodePNG(&buf, f, 0); err == nil {
		t.Error("expected error for zero scale")
	}
}

func TestSummarize(t *testing.T) {
	f, _ := NewFrame(4, 4)
	f.Set(0, 0, White)
	f.Set(1, 0, Red)

	s := Summarize(f)
	if s.Total != 16 {
		t.Errorf("Total = %d, want 16", s.Total)
	}
	if s.Lit != 2 {
		t.Errorf("Lit = %d, want 2", s.Lit)
	}
	if s.OccupiedFraction != 2.0/16.0 {
		t.Errorf("OccupiedFraction = %g, want 0.125", s.OccupiedFraction)
	}
	if s.MedianLuma <= 0 {
		t.Errorf("MedianLuma = %g, want > 0", s.MedianLuma)
	}
	if s.P90Luma < s.MedianLuma {
		t.Errorf("P90Luma %g < MedianLuma %g", s.P90Luma, s.MedianLuma)
	}
}

func TestSummarizeEmptyFrame(t *testing.T) {
	f, _ := NewFrame(4, 4)
	s := Summarize(f)
	if s.Lit != 0 || s.MedianLuma != 0 || s.OccupiedFraction != 0 {
		t.Errorf("empty frame stats = %+v, want zeros", s)
	}
}
