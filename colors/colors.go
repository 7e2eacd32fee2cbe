// Package colors turns envelope levels and active notes into frame colors.
// Everything here is a pure function of its arguments, which is what keeps
// exports reproducible.
package colors

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is one 8-bit color triple, ready for a framebuffer.
type RGB [3]uint8

// NoteBlend places each note on the hue circle (hue = note/128) at full
// saturation and returns the weighted average as linear RGB in [0, 1].
// With velocity sensitivity on, each note weighs in at its held level.
func NoteBlend(activeNotes []uint8, noteLevels map[uint8]float64, velocitySensitive bool) (r, g, b float64) {
	if len(activeNotes) == 0 {
		return 0, 0, 0
	}

	var rAcc, gAcc, bAcc, totalWeight float64
	for _, note := range activeNotes {
		hue := float64(note%128) / 128
		c := colorful.Hsv(hue*360, 1, 1)

		weight := 1.0
		if velocitySensitive {
			if lv, ok := noteLevels[note]; ok {
				weight = lv
			}
		}
		rAcc += c.R * weight
		gAcc += c.G * weight
		bAcc += c.B * weight
		totalWeight += weight
	}

	if totalWeight <= 0 {
		return 0, 0, 0
	}
	return rAcc / totalWeight, gAcc / totalWeight, bAcc / totalWeight
}

// ForLevel resolves the final frame color. In color mode with notes sounding
// the note blend is scaled by the envelope level; otherwise the level renders
// as grayscale.
func ForLevel(level float64, activeNotes []uint8, noteLevels map[uint8]float64, colorMode, velocitySensitive bool) RGB {
	level = min(1, max(0, level))

	r, g, b := level, level, level
	if colorMode && len(activeNotes) > 0 {
		br, bg, bb := NoteBlend(activeNotes, noteLevels, velocitySensitive)
		r, g, b = br*level, bg*level, bb*level
	}
	return RGB{channelByte(r), channelByte(g), channelByte(b)}
}

func channelByte(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
