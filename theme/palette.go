// Package theme maps normalized values and UI roles to colors, seeded
// from a GIMP palette file or the built-in ramp.
package theme

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type RGB [3]uint8

// Palette is an ordered color ramp. Lookup interpolates along it, so a
// handful of stops is enough for a smooth gradient.
type Palette struct {
	Name   string
	Colors []RGB
}

// Default is the built-in plasma ramp, deep purple through to yellow. The
// UI falls back to it when no palette file is configured.
func Default() *Palette {
	return &Palette{
		Name: "Plasma",
		Colors: []RGB{
			{13, 8, 135},
			{70, 3, 159},
			{114, 1, 168},
			{156, 23, 158},
			{189, 55, 134},
			{216, 87, 107},
			{237, 121, 83},
			{251, 159, 58},
			{253, 200, 38},
			{240, 249, 33},
		},
	}
}

// LoadGPL reads a GIMP .gpl palette. Header lines, comments and trailing
// color names are ignored; a file yielding no colors is an error.
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := &Palette{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if c, ok := parseGPLColor(line); ok {
			p.Colors = append(p.Colors, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found in palette %s", path)
	}
	return p, nil
}

// parseGPLColor reads the "R G B [name]" body lines, rejecting headers
// and comments.
func parseGPLColor(line string) (RGB, bool) {
	if line == "" || line[0] == '#' ||
		strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns") {
		return RGB{}, false
	}
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return RGB{}, false
	}
	var c RGB
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil || v < 0 || v > 255 {
			return RGB{}, false
		}
		c[i] = uint8(v)
	}
	return c, true
}

// Lookup interpolates the ramp at a normalized position, clamping to the
// ends outside [0, 1].
func (p *Palette) Lookup(norm float64) RGB {
	last := len(p.Colors) - 1
	if norm <= 0 || last == 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[last]
	}

	pos := norm * float64(last)
	i := int(pos)
	frac := pos - float64(i)
	return mix(p.Colors[i], p.Colors[i+1], frac)
}

// Index returns the stop at i with no interpolation, clamped into range.
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}

func mix(a, b RGB, t float64) RGB {
	var c RGB
	for i := range c {
		c[i] = uint8(float64(a[i])*(1-t) + float64(b[i])*t)
	}
	return c
}
