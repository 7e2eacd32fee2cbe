// Package session holds the shared visualizer state and the controller that
// applies MIDI messages to it. Live preview and offline export both run on
// this package, which is what makes recordings replayable.
package session

import (
	"sort"
	"strconv"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/NicholasCStanley/midiphoria/envelope"
)

// MappingKind selects what a Mapping listens for.
type MappingKind string

const (
	MapNote MappingKind = "note"
	MapCC   MappingKind = "cc"
)

// Mapping binds the trigger to a single note or CC on one channel.
type Mapping struct {
	Kind    MappingKind `json:"kind"`
	Channel uint8       `json:"channel"`
	Number  uint8       `json:"number"`
}

func DefaultMapping() Mapping {
	return Mapping{Kind: MapNote, Channel: 0, Number: 60}
}

// Matches reports whether msg addresses this mapping.
func (m Mapping) Matches(msg gomidi.Message) bool {
	var ch, num, val uint8
	switch {
	case msg.GetNoteOn(&ch, &num, &val) || msg.GetNoteOff(&ch, &num, &val):
		return m.Kind == MapNote && m.Channel == ch && m.Number == num
	case msg.GetControlChange(&ch, &num, &val):
		return m.Kind == MapCC && m.Channel == ch && m.Number == num
	}
	return false
}

// TriggerMode selects which notes may drive the envelope gate.
type TriggerMode string

const (
	TriggerMapped   TriggerMode = "mapped"
	TriggerAllNotes TriggerMode = "all_notes"
	TriggerNoteSet  TriggerMode = "note_set"
)

// Cycle returns the next mode in the mapped -> all_notes -> note_set loop.
func (m TriggerMode) Cycle() TriggerMode {
	switch m {
	case TriggerAllNotes:
		return TriggerNoteSet
	case TriggerNoteSet:
		return TriggerMapped
	default:
		return TriggerAllNotes
	}
}

func (m TriggerMode) Valid() bool {
	switch m {
	case TriggerMapped, TriggerAllNotes, TriggerNoteSet:
		return true
	}
	return false
}

// State carries the visualizer configuration plus the runtime note tracking
// the controller maintains. The configuration half round-trips through
// StateSnapshot; the runtime half always starts empty.
type State struct {
	Mapping           Mapping
	TriggerMode       TriggerMode
	NoteSet           map[uint8]struct{}
	ColorMode         bool
	VelocitySensitive bool
	ADSR              envelope.Params

	LearnMapping  bool
	LearnAddToSet bool
	DebugOverlay  bool

	ActiveNotes  map[uint8]struct{}
	NoteLevels   map[uint8]float64
	GateActive   bool
	LastVelocity float64
}

func NewState() *State {
	return &State{
		Mapping:      DefaultMapping(),
		TriggerMode:  TriggerMapped,
		NoteSet:      make(map[uint8]struct{}),
		ADSR:         envelope.DefaultParams(),
		DebugOverlay: true,
		ActiveNotes:  make(map[uint8]struct{}),
		NoteLevels:   make(map[uint8]float64),
		LastVelocity: 1,
	}
}

// SortedNoteSet returns the note set in ascending order.
func (s *State) SortedNoteSet() []uint8 {
	return sortedKeys(s.NoteSet)
}

// SortedActiveNotes returns the sounding notes in ascending order.
func (s *State) SortedActiveNotes() []uint8 {
	return sortedKeys(s.ActiveNotes)
}

// ClearActivity forgets all sounding notes. Used when the trigger mode
// changes so stale notes cannot hold the gate open.
func (s *State) ClearActivity() {
	s.ActiveNotes = make(map[uint8]struct{})
	s.NoteLevels = make(map[uint8]float64)
}

func (s *State) noteActive(key uint8) bool {
	_, ok := s.ActiveNotes[key]
	return ok
}

func sortedKeys(set map[uint8]struct{}) []uint8 {
	keys := make([]uint8, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ParseNoteSet reads a comma-separated note list, dropping blanks,
// non-numbers and values outside 0-127.
func ParseNoteSet(csv string) []uint8 {
	var notes []uint8
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		if n >= 0 && n <= 127 {
			notes = append(notes, uint8(n))
		}
	}
	return notes
}

// ClampChannel converts a 1-16 user channel to the 0-15 wire range.
func ClampChannel(ch int) uint8 {
	return uint8(min(15, max(0, ch-1)))
}

// ClampNote forces a note number into 0-127.
func ClampNote(n int) uint8 {
	return uint8(min(127, max(0, n)))
}
