package live

import (
	"strings"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/NicholasCStanley/midiphoria/envelope"
	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/session"
)

type stubSource struct {
	ch     chan midi.TimedMessage
	closed bool
}

func (s *stubSource) Messages() <-chan midi.TimedMessage { return s.ch }

func (s *stubSource) Close() error {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func newTestRuntime() (*Runtime, *session.State) {
	state := session.NewState()
	return NewRuntime(state), state
}

func TestCycleTriggerModeClearsActivity(t *testing.T) {
	rt, state := newTestRuntime()
	state.ActiveNotes[60] = struct{}{}
	state.NoteLevels[60] = 1
	state.GateActive = true
	rt.env.GateOn(1)

	rt.CycleTriggerMode()

	if state.TriggerMode != session.TriggerAllNotes {
		t.Fatalf("TriggerMode = %q, want all_notes", state.TriggerMode)
	}
	if len(state.ActiveNotes) != 0 || len(state.NoteLevels) != 0 {
		t.Fatalf("activity not cleared: %v %v", state.ActiveNotes, state.NoteLevels)
	}
	if state.GateActive {
		t.Fatal("GateActive still set after mode change")
	}
	if rt.env.Gated() {
		t.Fatal("envelope still gated after mode change")
	}
	if got := rt.eventLog[0]; got != "Trigger mode: all_notes" {
		t.Fatalf("log = %q", got)
	}
}

func TestToggleAddToSetForcesNoteSetMode(t *testing.T) {
	rt, state := newTestRuntime()

	rt.ToggleAddToSet()
	if !state.LearnAddToSet {
		t.Fatal("LearnAddToSet not armed")
	}
	if state.TriggerMode != session.TriggerNoteSet {
		t.Fatalf("TriggerMode = %q, want note_set", state.TriggerMode)
	}
	if got := rt.eventLog[0]; got != "Add-to-set learn ON (next note adds)" {
		t.Fatalf("log = %q", got)
	}

	rt.ToggleAddToSet()
	if state.LearnAddToSet {
		t.Fatal("LearnAddToSet still armed")
	}
	if state.TriggerMode != session.TriggerNoteSet {
		t.Fatal("disarming should not change the trigger mode")
	}
	if got := rt.eventLog[0]; got != "Add-to-set learn off" {
		t.Fatalf("log = %q", got)
	}
}

func TestAdjustADSRClampsAndLogs(t *testing.T) {
	rt, state := newTestRuntime()
	state.ADSR = envelope.Params{Attack: 0.03, Decay: 0, Sustain: 1, Release: 0}

	rt.AdjustADSR(func(p *envelope.Params) { p.Attack -= adsrStep })
	if state.ADSR.Attack != 0 {
		t.Fatalf("Attack = %v, want 0 after clamp", state.ADSR.Attack)
	}

	rt.AdjustADSR(func(p *envelope.Params) { p.Sustain += adsrStep })
	if state.ADSR.Sustain != 1 {
		t.Fatalf("Sustain = %v, want 1 after clamp", state.ADSR.Sustain)
	}

	if got := rt.eventLog[0]; got != "ADSR A=0.00 D=0.00 S=1.00 R=0.00" {
		t.Fatalf("log = %q", got)
	}
	if rt.env.Params() != state.ADSR {
		t.Fatal("envelope params not updated")
	}
}

func TestResetADSR(t *testing.T) {
	rt, state := newTestRuntime()
	state.ADSR = envelope.Params{Attack: 0.5, Decay: 0.5, Sustain: 0.5, Release: 0.5}
	rt.env.SetParams(state.ADSR)
	rt.env.GateOn(1)

	rt.ResetADSR()

	if state.ADSR != envelope.DefaultParams() {
		t.Fatalf("ADSR = %+v, want defaults", state.ADSR)
	}
	if rt.env.Level() != 0 {
		t.Fatalf("envelope level = %v, want 0 after reset", rt.env.Level())
	}
	if got := rt.eventLog[0]; got != "ADSR reset" {
		t.Fatalf("log = %q", got)
	}
}

func TestClearNoteSet(t *testing.T) {
	rt, state := newTestRuntime()
	state.NoteSet[36] = struct{}{}
	state.NoteSet[38] = struct{}{}

	rt.ClearNoteSet()

	if len(state.NoteSet) != 0 {
		t.Fatalf("NoteSet = %v, want empty", state.NoteSet)
	}
	if got := rt.eventLog[0]; got != "Note set cleared" {
		t.Fatalf("log = %q", got)
	}
}

func TestEventLogCapAndOrder(t *testing.T) {
	rt, _ := newTestRuntime()
	for i := 0; i < eventLogMax+50; i++ {
		rt.Logf("line %d", i)
	}
	if len(rt.eventLog) != eventLogMax {
		t.Fatalf("log length = %d, want %d", len(rt.eventLog), eventLogMax)
	}
	if rt.eventLog[0] != "line 249" {
		t.Fatalf("newest line = %q, want line 249", rt.eventLog[0])
	}

	snap := rt.Snapshot()
	if len(snap.Recent) != recentLines {
		t.Fatalf("Recent length = %d, want %d", len(snap.Recent), recentLines)
	}
	if snap.Recent[0] != "line 249" {
		t.Fatalf("Recent[0] = %q", snap.Recent[0])
	}
}

func TestSnapshotClampsLevel(t *testing.T) {
	rt, state := newTestRuntime()
	state.VelocitySensitive = true
	rt.env.GateOn(0.5)

	snap := rt.Snapshot()
	if snap.Level != 0.5 {
		t.Fatalf("Level = %v, want 0.5", snap.Level)
	}
	if !snap.GateActive && state.GateActive {
		t.Fatal("snapshot lost gate flag")
	}
}

func TestRuntimeDeliversMessages(t *testing.T) {
	state := session.NewState()
	state.TriggerMode = session.TriggerAllNotes
	rt := NewRuntime(state)
	src := &stubSource{ch: make(chan midi.TimedMessage, 4)}
	rt.AttachSource(src)
	rt.Start()
	defer rt.Close()

	src.ch <- midi.TimedMessage{T: 0, Msg: gomidi.NoteOn(0, 60, 100)}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := rt.Snapshot()
		if len(snap.ActiveNotes) == 1 && snap.ActiveNotes[0] == 60 {
			if !snap.GateActive {
				t.Fatal("gate not active after note on")
			}
			if snap.Level != 1 {
				t.Fatalf("Level = %v, want 1 for instant attack", snap.Level)
			}
			if len(snap.Recent) == 0 || !strings.Contains(snap.Recent[0], "note_on ch=1 note=60 vel=100") {
				t.Fatalf("Recent = %v", snap.Recent)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("note never reached the state: %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatchPortsForgetsRemoved(t *testing.T) {
	rt, _ := newTestRuntime()
	rt.SetPorts([]string{"Keyboard A", "Pads B"})

	events := make(chan midi.PortEvent)
	rt.WatchPorts(events, midi.WatcherConfig{})
	events <- midi.PortEvent{Type: midi.PortRemoved, Name: "Pads B"}
	close(events)

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := rt.Snapshot()
		if len(snap.Ports) == 1 && snap.Ports[0] == "Keyboard A" {
			if len(snap.Recent) == 0 || snap.Recent[0] != "MIDI port disconnected: Pads B" {
				t.Fatalf("Recent = %v", snap.Recent)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("port never removed: %v", snap.Ports)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRuntimeCloseIsIdempotent(t *testing.T) {
	rt, _ := newTestRuntime()
	src := &stubSource{ch: make(chan midi.TimedMessage)}
	rt.AttachSource(src)
	rt.Start()

	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
