package midi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/NicholasCStanley/midiphoria/debug"
	"github.com/NicholasCStanley/midiphoria/session"
)

// RecordingSchema identifies the JSONL recording format: a meta line first,
// then one midi line per message with seconds since recording start.
const RecordingSchema = "midiphoria.midi_recording.v1"

const (
	appName    = "midiphoria"
	appVersion = "0.1.0"
)

type recordingMeta struct {
	Type         string                 `json:"type"`
	Schema       string                 `json:"schema"`
	CreatedUnixS float64                `json:"created_unix_s"`
	App          string                 `json:"app"`
	AppVersion   string                 `json:"app_version"`
	State        *session.StateSnapshot `json:"state"`
}

type recordedEvent struct {
	Type string  `json:"type"`
	T    float64 `json:"t"`
	Data []int   `json:"data"`
}

// Recorder appends messages to a JSONL file from a writer goroutine so the
// MIDI path never waits on the disk. Lines are written unbuffered: a crash
// loses at most what was still queued.
//
// Start, Record and Close must be serialized by the caller.
type Recorder struct {
	path    string
	snap    session.StateSnapshot
	queue   chan []byte
	done    chan struct{}
	t0      time.Time
	started bool
	werr    error
}

// NewRecorder prepares a recorder. snap becomes the meta line's state
// object, which export replays through by default.
func NewRecorder(path string, snap session.StateSnapshot) *Recorder {
	return &Recorder{
		path:  path,
		snap:  snap,
		queue: make(chan []byte, 256),
		done:  make(chan struct{}),
	}
}

// Path returns the recording file path.
func (r *Recorder) Path() string {
	return r.path
}

// Start creates the file, launches the writer and queues the meta line.
func (r *Recorder) Start() error {
	if r.started {
		return nil
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create recording dir: %w", err)
		}
	}
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}

	r.t0 = time.Now()
	go r.writerLoop(f)

	meta := recordingMeta{
		Type:         "meta",
		Schema:       RecordingSchema,
		CreatedUnixS: float64(time.Now().UnixNano()) / 1e9,
		App:          appName,
		AppVersion:   appVersion,
		State:        &r.snap,
	}
	line, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	r.queue <- line
	r.started = true
	return nil
}

// Record queues one message. A negative t means "stamp with the time since
// Start"; replayed streams pass their own timeline positions instead.
func (r *Recorder) Record(msg gomidi.Message, t float64) {
	if !r.started {
		return
	}
	if t < 0 {
		t = time.Since(r.t0).Seconds()
	}
	data := make([]int, len(msg))
	for i, b := range msg {
		data[i] = int(b)
	}
	line, err := json.Marshal(recordedEvent{Type: "midi", T: t, Data: data})
	if err != nil {
		return
	}
	r.queue <- line
}

// Close drains the queue, closes the file and reports the first write error
// if one occurred.
func (r *Recorder) Close() error {
	if !r.started {
		return nil
	}
	r.started = false
	close(r.queue)

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		return fmt.Errorf("recording writer did not finish in time")
	}
	return r.werr
}

func (r *Recorder) writerLoop(f *os.File) {
	defer close(r.done)
	defer f.Close()

	for line := range r.queue {
		if r.werr != nil {
			continue // keep draining so Record never blocks forever
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			r.werr = err
			debug.Log("record", "write: %v", err)
		}
	}
}
