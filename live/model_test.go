package live

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NicholasCStanley/midiphoria/theme"
)

func newTestModel(t *testing.T) (Model, *Runtime) {
	t.Helper()
	rt, _ := newTestRuntime()
	return NewModel(rt, theme.New(theme.Default())), rt
}

func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestKeyTogglesColorMode(t *testing.T) {
	m, rt := newTestModel(t)

	press(t, m, "k")
	if !rt.state.ColorMode {
		t.Fatal("color mode not toggled on")
	}
	if got := rt.eventLog[0]; got != "Color mode ON" {
		t.Fatalf("log = %q", got)
	}

	press(t, m, "k")
	if rt.state.ColorMode {
		t.Fatal("color mode not toggled off")
	}
}

func TestKeyNudgesAttack(t *testing.T) {
	m, rt := newTestModel(t)

	m = press(t, m, "2")
	m = press(t, m, "2")
	if got := rt.state.ADSR.Attack; math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("Attack = %v, want 0.1", got)
	}

	press(t, m, "1")
	if got := rt.state.ADSR.Attack; math.Abs(got-0.05) > 1e-12 {
		t.Fatalf("Attack = %v, want 0.05", got)
	}
}

func TestKeyQuit(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	if !m.quitting {
		t.Fatal("model not quitting")
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("cmd returned %T, want tea.QuitMsg", cmd())
	}
	if m.View() != "" {
		t.Fatal("quitting view should be empty")
	}
}

func TestViewShowsStatus(t *testing.T) {
	m, _ := newTestModel(t)

	view := m.View()
	for _, want := range []string{
		"Mapping: note ch=1 num=60",
		"Trigger mode: mapped",
		"Color mode: off",
		"ADSR A=0.00 D=0.00 S=1.00 R=0.00",
		"Recent MIDI:",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewOverlayHidden(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "d")
	view := m.View()
	if strings.Contains(view, "Trigger mode") {
		t.Fatal("overlay still visible after toggle")
	}
	if !strings.Contains(view, "█") {
		t.Fatal("light surface missing")
	}
}

func TestViewHelp(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "?")
	view := m.View()
	if !strings.Contains(view, "Triggering") {
		t.Fatal("help sections missing")
	}
	if !strings.Contains(view, "cycle trigger mode") {
		t.Fatal("help bindings missing")
	}
}

func TestNotePreview(t *testing.T) {
	tests := []struct {
		notes []uint8
		want  string
	}{
		{nil, ""},
		{[]uint8{36}, "36"},
		{[]uint8{36, 38, 42}, "36, 38, 42"},
		{[]uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, "1, 2, 3, 4, 5, 6, 7, 8 …"},
	}
	for _, tt := range tests {
		if got := notePreview(tt.notes); got != tt.want {
			t.Errorf("notePreview(%v) = %q, want %q", tt.notes, got, tt.want)
		}
	}
}

func TestMeterWidth(t *testing.T) {
	tests := []struct {
		window int
		want   int
	}{
		{80, 40},
		{20, 18},
		{3, 4},
	}
	for _, tt := range tests {
		if got := meterWidth(tt.window); got != tt.want {
			t.Errorf("meterWidth(%d) = %d, want %d", tt.window, got, tt.want)
		}
	}
}
