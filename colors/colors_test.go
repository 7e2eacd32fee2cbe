package colors

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestNoteBlendEmpty(t *testing.T) {
	r, g, b := NoteBlend(nil, nil, false)
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("empty blend = (%v, %v, %v), want black", r, g, b)
	}
}

func TestNoteBlendSingleNote(t *testing.T) {
	// Note 0 sits at hue 0: pure red.
	r, g, b := NoteBlend([]uint8{0}, nil, false)
	if !approx(r, 1) || !approx(g, 0) || !approx(b, 0) {
		t.Fatalf("note 0 = (%v, %v, %v), want red", r, g, b)
	}

	// Note 64 sits at hue 180: cyan.
	r, g, b = NoteBlend([]uint8{64}, nil, false)
	if !approx(r, 0) || !approx(g, 1) || !approx(b, 1) {
		t.Fatalf("note 64 = (%v, %v, %v), want cyan", r, g, b)
	}
}

func TestNoteBlendAverages(t *testing.T) {
	// Red and cyan in equal parts meet in the middle.
	r, g, b := NoteBlend([]uint8{0, 64}, nil, false)
	if !approx(r, 0.5) || !approx(g, 0.5) || !approx(b, 0.5) {
		t.Fatalf("blend = (%v, %v, %v), want (0.5, 0.5, 0.5)", r, g, b)
	}
}

func TestNoteBlendVelocityWeights(t *testing.T) {
	levels := map[uint8]float64{0: 0.75, 64: 0.25}
	r, g, b := NoteBlend([]uint8{0, 64}, levels, true)
	if !approx(r, 0.75) || !approx(g, 0.25) || !approx(b, 0.25) {
		t.Fatalf("weighted blend = (%v, %v, %v), want (0.75, 0.25, 0.25)", r, g, b)
	}

	// A note missing from the level map weighs in at full.
	r, _, _ = NoteBlend([]uint8{0}, map[uint8]float64{}, true)
	if !approx(r, 1) {
		t.Fatalf("unknown note weight: r = %v, want 1", r)
	}
}

func TestNoteBlendZeroTotalWeight(t *testing.T) {
	levels := map[uint8]float64{0: 0}
	r, g, b := NoteBlend([]uint8{0}, levels, true)
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("zero-weight blend = (%v, %v, %v), want black", r, g, b)
	}
}

func TestForLevelGrayscale(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		want  RGB
	}{
		{"black", 0, RGB{0, 0, 0}},
		{"mid", 0.5, RGB{128, 128, 128}},
		{"white", 1, RGB{255, 255, 255}},
		{"clamped high", 1.5, RGB{255, 255, 255}},
		{"clamped low", -0.5, RGB{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForLevel(tt.level, nil, nil, false, false); got != tt.want {
				t.Errorf("ForLevel(%v) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestForLevelColorMode(t *testing.T) {
	// Color mode scales the note blend by the level.
	got := ForLevel(1, []uint8{0}, nil, true, false)
	if got != (RGB{255, 0, 0}) {
		t.Fatalf("full red = %v, want {255 0 0}", got)
	}

	got = ForLevel(0.5, []uint8{0}, nil, true, false)
	if got != (RGB{128, 0, 0}) {
		t.Fatalf("half red = %v, want {128 0 0}", got)
	}

	// Without active notes color mode falls back to grayscale.
	got = ForLevel(0.5, nil, nil, true, false)
	if got != (RGB{128, 128, 128}) {
		t.Fatalf("no notes = %v, want gray", got)
	}
}
