package live

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NicholasCStanley/midiphoria/colors"
	"github.com/NicholasCStanley/midiphoria/envelope"
	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/theme"
	"github.com/NicholasCStanley/midiphoria/widgets"
)

// previewNotes is how many notes the overlay lists before eliding.
const previewNotes = 8

// Model is the bubbletea model for the live view.
type Model struct {
	rt *Runtime
	th *theme.Theme

	width    int
	height   int
	showHelp bool
	quitting bool
}

// NewModel wraps a runtime for display.
func NewModel(rt *Runtime, th *theme.Theme) Model {
	return Model{
		rt:     rt,
		th:     th,
		width:  80,
		height: 24,
	}
}

// UpdateMsg signals that the runtime changed and the view should redraw.
type UpdateMsg struct{}

// ListenForUpdates waits for runtime updates.
func ListenForUpdates(rt *Runtime) tea.Cmd {
	return func() tea.Msg {
		<-rt.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.rt)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			m.rt.Close()
			return m, tea.Quit
		case "d":
			m.rt.ToggleOverlay()
		case "l":
			m.rt.ToggleLearn()
		case "n":
			m.rt.CycleTriggerMode()
		case "k":
			m.rt.ToggleColorMode()
		case "a":
			m.rt.ToggleAddToSet()
		case "c":
			m.rt.ClearNoteSet()
		case "v":
			m.rt.ToggleVelocity()
		case "r":
			m.rt.ResetADSR()
		case "s":
			m.rt.SavePreset("")
		case "?":
			m.showHelp = !m.showHelp
		case "1":
			m.rt.AdjustADSR(func(p *envelope.Params) { p.Attack -= adsrStep })
		case "2":
			m.rt.AdjustADSR(func(p *envelope.Params) { p.Attack += adsrStep })
		case "3":
			m.rt.AdjustADSR(func(p *envelope.Params) { p.Decay -= adsrStep })
		case "4":
			m.rt.AdjustADSR(func(p *envelope.Params) { p.Decay += adsrStep })
		case "5":
			m.rt.AdjustADSR(func(p *envelope.Params) { p.Sustain -= adsrStep })
		case "6":
			m.rt.AdjustADSR(func(p *envelope.Params) { p.Sustain += adsrStep })
		case "7":
			m.rt.AdjustADSR(func(p *envelope.Params) { p.Release -= adsrStep })
		case "8":
			m.rt.AdjustADSR(func(p *envelope.Params) { p.Release += adsrStep })
		}
		return m, nil

	case UpdateMsg:
		return m, ListenForUpdates(m.rt)
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.rt.Snapshot()
	rgb := s.RGB()

	// Overlay hidden: the whole window is the light surface.
	if !s.DebugOverlay {
		return widgets.RenderBlock(rgb, m.width, m.height)
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.th.Muted())

	gate := string(m.th.Symbols.GateClosed)
	if s.GateActive {
		gate = string(m.th.Symbols.GateOpen)
	}
	rec := ""
	if s.Recording {
		rec = dimStyle.Render("  REC")
	}
	header := headerStyle.Render(fmt.Sprintf("midiphoria  %s  level %.3f", gate, s.Level)) + rec

	var overlay string
	if m.showHelp {
		overlay = m.helpView()
	} else {
		overlay = m.statusView(s, dimStyle)
	}

	meter := widgets.RenderMeter(s.Level, meterWidth(m.width), rgb)

	blockH := m.height - lipgloss.Height(header) - lipgloss.Height(meter) - lipgloss.Height(overlay) - 3
	if blockH < 1 {
		blockH = 1
	}
	block := widgets.RenderBlock(rgb, m.width, blockH)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(block)
	b.WriteString("\n")
	b.WriteString(meter)
	b.WriteString("\n\n")
	b.WriteString(overlay)
	return b.String()
}

func (m Model) statusView(s Snapshot, dimStyle lipgloss.Style) string {
	var lines []string

	lines = append(lines,
		fmt.Sprintf("Mapping: %s ch=%d num=%d", s.Mapping.Kind, s.Mapping.Channel+1, s.Mapping.Number),
		fmt.Sprintf("Trigger mode: %s", s.TriggerMode),
		fmt.Sprintf("Note set: [%s] (%d)", notePreview(s.NoteSet), len(s.NoteSet)),
		fmt.Sprintf("Color mode: %s", onOff(s.ColorMode)),
		fmt.Sprintf("Learn mode: %s", onOff(s.LearnMapping)),
		fmt.Sprintf("Add-to-set learn: %s", onOff(s.LearnAddToSet)),
		fmt.Sprintf("Velocity sensitive: %s", onOff(s.VelocitySensitive)),
		fmt.Sprintf("ADSR A=%.2f D=%.2f S=%.2f R=%.2f", s.ADSR.Attack, s.ADSR.Decay, s.ADSR.Sustain, s.ADSR.Release),
		fmt.Sprintf("Level: %.3f  Active notes: [%s] (%d)", s.Level, notePreview(s.ActiveNotes), len(s.ActiveNotes)),
	)

	if chips := activeChips(s); chips != "" {
		lines = append(lines, chips)
	}
	if s.LearnMapping {
		lines = append(lines, widgets.RenderLegendItem(m.th.RGB(theme.RoleWarning), "LEARN", "next note or CC becomes the trigger mapping"))
	}
	if s.LearnAddToSet {
		lines = append(lines, widgets.RenderLegendItem(m.th.RGB(theme.RoleCursor), "ADD", "next note joins the note set"))
	}

	if len(s.Ports) > 0 {
		lines = append(lines, dimStyle.Render("Ports: "+strings.Join(s.Ports, ", ")))
	} else {
		lines = append(lines, dimStyle.Render("No MIDI input ports"))
	}

	lines = append(lines, "", "Recent MIDI:")
	for _, line := range s.Recent {
		lines = append(lines, dimStyle.Render("  "+line))
	}

	lines = append(lines, "", dimStyle.Render(
		"d overlay · l learn · n mode · a add · c clear · k color · v vel · r reset · 1-8 adsr · s save · ? help · q quit"))
	return strings.Join(lines, "\n")
}

func (m Model) helpView() string {
	return widgets.RenderKeyHelp([]widgets.KeySection{
		{
			Title: "Triggering",
			Keys: []widgets.KeyBinding{
				{Key: "n", Desc: "cycle trigger mode (mapped, all_notes, note_set)"},
				{Key: "l", Desc: "learn the trigger mapping from the next note or CC"},
				{Key: "a", Desc: "add the next note to the note set"},
				{Key: "c", Desc: "clear the note set"},
			},
		},
		{
			Title: "Light",
			Keys: []widgets.KeyBinding{
				{Key: "k", Desc: "toggle note-colored light"},
				{Key: "v", Desc: "toggle velocity sensitivity"},
				{Key: "1-8", Desc: "nudge attack, decay, sustain, release down/up"},
				{Key: "r", Desc: "reset ADSR to the instant gate"},
			},
		},
		{
			Title: "Session",
			Keys: []widgets.KeyBinding{
				{Key: "s", Desc: "save the current state as a preset"},
				{Key: "d", Desc: "hide the overlay"},
				{Key: "?", Desc: "close this help"},
				{Key: "q", Desc: "quit"},
			},
		},
	})
}

func notePreview(notes []uint8) string {
	shown := notes
	if len(shown) > previewNotes {
		shown = shown[:previewNotes]
	}
	parts := make([]string, len(shown))
	for i, n := range shown {
		parts[i] = strconv.Itoa(int(n))
	}
	out := strings.Join(parts, ", ")
	if len(notes) > previewNotes {
		out += " …"
	}
	return out
}

// activeChips shows the sounding notes as colored swatches with names.
func activeChips(s Snapshot) string {
	notes := s.ActiveNotes
	if len(notes) == 0 {
		return ""
	}
	if len(notes) > previewNotes {
		notes = notes[:previewNotes]
	}
	parts := make([]string, len(notes))
	for i, n := range notes {
		col := colors.ForLevel(1, []uint8{n}, nil, true, false)
		parts[i] = widgets.RenderSwatch(col) + " " + midi.NoteName(n)
	}
	return strings.Join(parts, "  ")
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "off"
}

func meterWidth(windowWidth int) int {
	w := windowWidth - 2
	if w > 40 {
		w = 40
	}
	if w < 4 {
		w = 4
	}
	return w
}
