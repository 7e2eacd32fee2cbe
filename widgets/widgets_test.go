package widgets

import (
	"strings"
	"testing"
)

func TestRenderMeterFill(t *testing.T) {
	red := [3]uint8{255, 0, 0}

	out := RenderMeter(0.5, 10, red)
	if n := strings.Count(out, "█"); n != 5 {
		t.Errorf("half level: %d filled cells, want 5", n)
	}
	if n := strings.Count(out, "░"); n != 5 {
		t.Errorf("half level: %d empty cells, want 5", n)
	}

	out = RenderMeter(-1, 4, red)
	if strings.Count(out, "█") != 0 || strings.Count(out, "░") != 4 {
		t.Errorf("negative level should render empty: %q", out)
	}

	out = RenderMeter(2, 4, red)
	if strings.Count(out, "█") != 4 || strings.Count(out, "░") != 0 {
		t.Errorf("overdriven level should render full: %q", out)
	}
}

func TestRenderBlock(t *testing.T) {
	out := RenderBlock([3]uint8{0, 255, 0}, 3, 2)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d rows, want 2", len(lines))
	}
	if n := strings.Count(out, "█"); n != 6 {
		t.Errorf("got %d cells, want 6", n)
	}
	if RenderBlock([3]uint8{0, 0, 0}, 0, 5) != "" {
		t.Error("zero width block should be empty")
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{
		{Title: "Session", Keys: []KeyBinding{
			{Key: "l", Desc: "learn mapping"},
			{Key: "n", Desc: "cycle trigger mode"},
		}},
	})
	if !strings.Contains(out, "Session") {
		t.Error("section title missing")
	}
	if !strings.Contains(out, "learn mapping") || !strings.Contains(out, "cycle trigger mode") {
		t.Errorf("key descriptions missing: %q", out)
	}
}

func TestRenderLegendItem(t *testing.T) {
	out := RenderLegendItem([3]uint8{1, 2, 3}, "C4", "held")
	if !strings.Contains(out, "C4 - held") {
		t.Errorf("legend item = %q", out)
	}
}
