package session

import (
	"encoding/json"
	"testing"

	"github.com/NicholasCStanley/midiphoria/envelope"
)

func TestSnapshotJSONShape(t *testing.T) {
	state := NewState()
	state.NoteSet[38] = struct{}{}
	state.NoteSet[36] = struct{}{}
	state.ColorMode = true

	data, err := json.Marshal(state.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	want := `{"mapping":{"kind":"note","channel":0,"number":60},` +
		`"trigger_mode":"mapped","note_set":[36,38],"color_mode":true,` +
		`"velocity_sensitive":false,` +
		`"adsr":{"attack":0,"decay":0,"sustain":1,"release":0}}`
	if string(data) != want {
		t.Fatalf("snapshot JSON mismatch:\n got %s\nwant %s", data, want)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	state := NewState()
	state.Mapping = Mapping{Kind: MapCC, Channel: 9, Number: 64}
	state.TriggerMode = TriggerNoteSet
	state.NoteSet[1] = struct{}{}
	state.NoteSet[127] = struct{}{}
	state.VelocitySensitive = true
	state.ADSR = envelope.Params{Attack: 0.25, Decay: 0.1, Sustain: 0.5, Release: 2}

	data, err := json.Marshal(state.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	var snap StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}

	restored := NewState()
	restored.ApplySnapshot(snap)

	if restored.Mapping != state.Mapping {
		t.Errorf("mapping = %+v, want %+v", restored.Mapping, state.Mapping)
	}
	if restored.TriggerMode != state.TriggerMode {
		t.Errorf("trigger mode = %s, want %s", restored.TriggerMode, state.TriggerMode)
	}
	if restored.VelocitySensitive != state.VelocitySensitive {
		t.Errorf("velocity sensitive = %v", restored.VelocitySensitive)
	}
	if restored.ADSR != state.ADSR {
		t.Errorf("adsr = %+v, want %+v", restored.ADSR, state.ADSR)
	}
	if len(restored.NoteSet) != 2 {
		t.Errorf("note set = %v, want {1,127}", restored.SortedNoteSet())
	}
}

func TestApplySnapshotMerges(t *testing.T) {
	attack := 0.5
	partial := StateSnapshot{ADSR: &ADSRSnapshot{Attack: &attack}}

	state := NewState()
	state.NoteSet[36] = struct{}{}
	state.ColorMode = true
	state.ADSR.Release = 1

	state.ApplySnapshot(partial)

	if state.ADSR.Attack != 0.5 || state.ADSR.Release != 1 {
		t.Errorf("adsr = %+v, want attack 0.5 release 1", state.ADSR)
	}
	if !state.ColorMode {
		t.Errorf("absent color_mode should leave state untouched")
	}
	if _, ok := state.NoteSet[36]; !ok {
		t.Errorf("absent note_set should leave the set untouched")
	}
	if state.TriggerMode != TriggerMapped {
		t.Errorf("absent trigger_mode should leave state untouched")
	}
}

func TestApplySnapshotNoteSet(t *testing.T) {
	t.Run("present replaces", func(t *testing.T) {
		state := NewState()
		state.NoteSet[10] = struct{}{}
		state.ApplySnapshot(StateSnapshot{NoteSet: []int{36, 200, -3, 38}})
		got := state.SortedNoteSet()
		if len(got) != 2 || got[0] != 36 || got[1] != 38 {
			t.Fatalf("note set = %v, want [36 38]", got)
		}
	})

	t.Run("empty clears", func(t *testing.T) {
		state := NewState()
		state.NoteSet[10] = struct{}{}
		state.ApplySnapshot(StateSnapshot{NoteSet: []int{}})
		if len(state.NoteSet) != 0 {
			t.Fatalf("note set should be cleared, got %v", state.SortedNoteSet())
		}
	})
}

func TestApplySnapshotClamps(t *testing.T) {
	kind := MapNote
	channel := 99
	number := 300
	attack := -2.0
	sustain := 4.0

	state := NewState()
	state.ApplySnapshot(StateSnapshot{
		Mapping: &MappingSnapshot{Kind: &kind, Channel: &channel, Number: &number},
		ADSR:    &ADSRSnapshot{Attack: &attack, Sustain: &sustain},
	})

	if state.Mapping.Channel != 15 || state.Mapping.Number != 127 {
		t.Errorf("mapping = %+v, want channel 15 number 127", state.Mapping)
	}
	if state.ADSR.Attack != 0 || state.ADSR.Sustain != 1 {
		t.Errorf("adsr = %+v, want attack 0 sustain 1", state.ADSR)
	}
}

func TestParseNoteSet(t *testing.T) {
	tests := []struct {
		in   string
		want []uint8
	}{
		{"36,38,42", []uint8{36, 38, 42}},
		{" 60 , , x, 200, -1, 0", []uint8{60, 0}},
		{"", nil},
	}
	for _, tt := range tests {
		got := ParseNoteSet(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseNoteSet(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseNoteSet(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}
