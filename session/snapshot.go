package session

// StateSnapshot is the wire form of the persisted configuration. It is the
// "state" object on a recording's meta line and the body of a preset file.
// All fields are optional: absent ones are no-ops in ApplySnapshot, which is
// how the CLI expresses "only change what was explicitly flagged".
type StateSnapshot struct {
	Mapping           *MappingSnapshot `json:"mapping,omitempty"`
	TriggerMode       *TriggerMode     `json:"trigger_mode,omitempty"`
	NoteSet           []int            `json:"note_set"`
	ColorMode         *bool            `json:"color_mode,omitempty"`
	VelocitySensitive *bool            `json:"velocity_sensitive,omitempty"`
	ADSR              *ADSRSnapshot    `json:"adsr,omitempty"`
}

type MappingSnapshot struct {
	Kind    *MappingKind `json:"kind,omitempty"`
	Channel *int         `json:"channel,omitempty"`
	Number  *int         `json:"number,omitempty"`
}

type ADSRSnapshot struct {
	Attack  *float64 `json:"attack,omitempty"`
	Decay   *float64 `json:"decay,omitempty"`
	Sustain *float64 `json:"sustain,omitempty"`
	Release *float64 `json:"release,omitempty"`
}

// Snapshot captures the persisted configuration with every field set.
// The note set serializes sorted so identical states produce identical
// bytes.
func (s *State) Snapshot() StateSnapshot {
	kind := s.Mapping.Kind
	channel := int(s.Mapping.Channel)
	number := int(s.Mapping.Number)
	mode := s.TriggerMode
	colorMode := s.ColorMode
	velocity := s.VelocitySensitive
	adsr := s.ADSR

	noteSet := make([]int, 0, len(s.NoteSet))
	for _, n := range s.SortedNoteSet() {
		noteSet = append(noteSet, int(n))
	}

	return StateSnapshot{
		Mapping:           &MappingSnapshot{Kind: &kind, Channel: &channel, Number: &number},
		TriggerMode:       &mode,
		NoteSet:           noteSet,
		ColorMode:         &colorMode,
		VelocitySensitive: &velocity,
		ADSR: &ADSRSnapshot{
			Attack:  &adsr.Attack,
			Decay:   &adsr.Decay,
			Sustain: &adsr.Sustain,
			Release: &adsr.Release,
		},
	}
}

// ApplySnapshot merges snap into the state. Present fields overwrite,
// absent fields keep the current value. Channels, notes and ADSR values are
// clamped into range on the way in; a present note set replaces the whole
// set (an empty one clears it).
func (s *State) ApplySnapshot(snap StateSnapshot) {
	if m := snap.Mapping; m != nil {
		if m.Kind != nil {
			s.Mapping.Kind = *m.Kind
		}
		if m.Channel != nil {
			s.Mapping.Channel = uint8(min(15, max(0, *m.Channel)))
		}
		if m.Number != nil {
			s.Mapping.Number = uint8(min(127, max(0, *m.Number)))
		}
	}
	if snap.TriggerMode != nil {
		s.TriggerMode = *snap.TriggerMode
	}
	if snap.ColorMode != nil {
		s.ColorMode = *snap.ColorMode
	}
	if snap.VelocitySensitive != nil {
		s.VelocitySensitive = *snap.VelocitySensitive
	}
	if snap.NoteSet != nil {
		set := make(map[uint8]struct{}, len(snap.NoteSet))
		for _, n := range snap.NoteSet {
			if n >= 0 && n <= 127 {
				set[uint8(n)] = struct{}{}
			}
		}
		s.NoteSet = set
	}
	if a := snap.ADSR; a != nil {
		if a.Attack != nil {
			s.ADSR.Attack = *a.Attack
		}
		if a.Decay != nil {
			s.ADSR.Decay = *a.Decay
		}
		if a.Sustain != nil {
			s.ADSR.Sustain = *a.Sustain
		}
		if a.Release != nil {
			s.ADSR.Release = *a.Release
		}
		s.ADSR.Clamp()
	}
}
