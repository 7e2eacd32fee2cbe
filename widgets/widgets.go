package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderSwatch renders a single colored cell
func RenderSwatch(color [3]uint8) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render("■")
}

// RenderBlock renders a solid block of one color, the live view's light
// surface
func RenderBlock(color [3]uint8, width, height int) string {
	if width < 1 || height < 1 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	row := style.Render(strings.Repeat("█", width))
	lines := make([]string, height)
	for i := range lines {
		lines[i] = row
	}
	return strings.Join(lines, "\n")
}

// RenderMeter renders a horizontal level bar, filled cells colored and the
// remainder dimmed
func RenderMeter(level float64, width int, color [3]uint8) string {
	if width < 1 {
		width = 1
	}
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(math.Round(level * float64(width)))
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color [3]uint8, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderSwatch(color), name, desc)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
