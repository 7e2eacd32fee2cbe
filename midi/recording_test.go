package midi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/NicholasCStanley/midiphoria/session"
)

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "takes", "take.jsonl")

	st := session.NewState()
	st.NoteSet[36] = struct{}{}
	st.TriggerMode = session.TriggerNoteSet

	rec := NewRecorder(path, st.Snapshot())
	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.Record(gomidi.NoteOn(0, 36, 100), 0.25)
	rec.Record(gomidi.NoteOff(0, 36), 1.5)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadRecording(path)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}
	if got.Snapshot == nil {
		t.Fatal("no state snapshot from the meta line")
	}
	if got.Snapshot.TriggerMode == nil || *got.Snapshot.TriggerMode != session.TriggerNoteSet {
		t.Errorf("trigger mode = %v, want note_set", got.Snapshot.TriggerMode)
	}
	if len(got.Snapshot.NoteSet) != 1 || got.Snapshot.NoteSet[0] != 36 {
		t.Errorf("note set = %v, want [36]", got.Snapshot.NoteSet)
	}

	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(got.Messages))
	}
	if got.Messages[0].T != 0.25 || got.Messages[1].T != 1.5 {
		t.Errorf("timestamps = %v, %v, want 0.25, 1.5", got.Messages[0].T, got.Messages[1].T)
	}
	var ch, key, vel uint8
	if !got.Messages[0].Msg.GetNoteStart(&ch, &key, &vel) || key != 36 || vel != 100 {
		t.Errorf("first message = %s, want note-on 36 vel 100", got.Messages[0].Msg)
	}
	if !got.Messages[1].Msg.GetNoteEnd(&ch, &key) {
		t.Errorf("second message = %s, want note-off", got.Messages[1].Msg)
	}
}

func TestRecorderStampsWallClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.jsonl")
	rec := NewRecorder(path, session.NewState().Snapshot())
	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.Record(gomidi.NoteOn(0, 60, 64), -1)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadRecording(path)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(got.Messages))
	}
	if ts := got.Messages[0].T; ts < 0 || ts > 5 {
		t.Errorf("stamped timestamp %v not within the test's runtime", ts)
	}
}

func TestReadRecordingHandwrittenFile(t *testing.T) {
	lines := []string{
		"",
		`{"type":"meta","schema":"midiphoria.midi_recording.v1","state":{"color_mode":false}}`,
		`{"type":"midi","t":2.0,"data":[144,62,80]}`,
		"  ",
		`{"type":"marker","t":1.0}`,
		`{"type":"meta","state":{"color_mode":true}}`,
		`{"type":"midi","t":0.5,"data":[128,62,0]}`,
	}
	path := filepath.Join(t.TempDir(), "hand.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadRecording(path)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}
	if got.Snapshot == nil || got.Snapshot.ColorMode == nil {
		t.Fatal("no color_mode from the meta line")
	}
	if *got.Snapshot.ColorMode {
		t.Error("second meta line overrode the first")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(got.Messages))
	}
	if got.Messages[0].T != 0.5 || got.Messages[1].T != 2.0 {
		t.Errorf("messages not sorted by time: %v, %v", got.Messages[0].T, got.Messages[1].T)
	}
}

func TestReadRecordingMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadRecording(path)
	if err == nil {
		t.Fatal("no error for a malformed line")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error %q does not name the line", err)
	}
}

func TestReadRecordingMissingFile(t *testing.T) {
	if _, err := ReadRecording(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Fatal("no error for a missing file")
	}
}
