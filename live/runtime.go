// Package live runs the interactive session: MIDI sources feed the
// controller under one lock, a fixed-rate clock steps the envelope, and
// the TUI renders snapshots of the result.
package live

import (
	"fmt"
	"sync"
	"time"

	"github.com/NicholasCStanley/midiphoria/colors"
	"github.com/NicholasCStanley/midiphoria/envelope"
	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/session"
)

const (
	// stepHz is the envelope clock rate. The envelope integrates real
	// elapsed time, so this only bounds update granularity.
	stepHz = 120

	// uiFPS is how often the TUI is prodded to redraw.
	uiFPS = 30

	// eventLogMax bounds the in-memory event log.
	eventLogMax = 200

	// recentLines is how many log lines a snapshot carries for the overlay.
	recentLines = 12

	// adsrStep is the per-keypress envelope parameter nudge.
	adsrStep = 0.05
)

// Runtime owns the live session state. All mutation happens under mu;
// the TUI reads through Snapshot and writes through the op methods.
type Runtime struct {
	mu    sync.Mutex
	state *session.State
	env   *envelope.Envelope
	ctrl  *session.Controller

	eventLog []string // newest first
	ports    []string // names of the open input ports

	recorder *midi.Recorder
	sources  []midi.Source
	preset   string // target of SavePreset("")

	stopChan chan struct{}
	stopOnce sync.Once

	// UpdateChan wakes the TUI. Buffered so a slow redraw never blocks
	// the clock or the MIDI pumps.
	UpdateChan chan struct{}
}

// NewRuntime wraps a session state in a runtime. Call AttachSource and
// AttachRecorder before Start.
func NewRuntime(state *session.State) *Runtime {
	r := &Runtime{
		state:      state,
		env:        envelope.New(state.ADSR),
		stopChan:   make(chan struct{}),
		UpdateChan: make(chan struct{}, 1),
	}
	r.ctrl = session.NewController(state, r.env, r.appendLog)
	return r
}

// appendLog pushes a line onto the event log, newest first. Caller
// holds mu.
func (r *Runtime) appendLog(line string) {
	r.eventLog = append([]string{line}, r.eventLog...)
	if len(r.eventLog) > eventLogMax {
		r.eventLog = r.eventLog[:eventLogMax]
	}
}

// Logf appends a formatted line to the on-screen event log.
func (r *Runtime) Logf(format string, args ...any) {
	r.mu.Lock()
	r.appendLog(fmt.Sprintf(format, args...))
	r.mu.Unlock()
	r.notify()
}

func (r *Runtime) notify() {
	select {
	case r.UpdateChan <- struct{}{}:
	default:
	}
}

// AttachSource subscribes the runtime to a message source. The source
// is closed, in attach order, when the runtime closes. Sources attached
// after Start must be pumped by the caller.
func (r *Runtime) AttachSource(src midi.Source) {
	r.mu.Lock()
	r.sources = append(r.sources, src)
	r.mu.Unlock()
}

// SetPorts records the open input port names for the overlay.
func (r *Runtime) SetPorts(names []string) {
	r.mu.Lock()
	r.ports = append([]string(nil), names...)
	r.mu.Unlock()
}

// AttachRecorder starts recording incoming messages to disk.
func (r *Runtime) AttachRecorder(rec *midi.Recorder) error {
	if err := rec.Start(); err != nil {
		return err
	}
	r.mu.Lock()
	r.recorder = rec
	r.mu.Unlock()
	r.Logf("Recording MIDI: %s", rec.Path())
	return nil
}

// Start launches the envelope clock and one pump per attached source.
func (r *Runtime) Start() {
	r.mu.Lock()
	sources := append([]midi.Source(nil), r.sources...)
	r.mu.Unlock()
	for _, src := range sources {
		go r.pump(src)
	}
	go r.stepLoop()
}

// Close stops the loops, closes the sources and flushes the recorder.
// Safe to call more than once.
func (r *Runtime) Close() error {
	r.stopOnce.Do(func() { close(r.stopChan) })

	r.mu.Lock()
	sources := append([]midi.Source(nil), r.sources...)
	r.mu.Unlock()

	var firstErr error
	for _, src := range sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Detach under mu so a pump mid-message cannot hit a closed recorder.
	r.mu.Lock()
	rec := r.recorder
	r.recorder = nil
	r.mu.Unlock()
	if rec != nil {
		if err := rec.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WatchPorts consumes hot-plug events. Added ports inside the session's
// selection are opened and pumped like startup ports; removed ports are
// noted in the log. The goroutine ends when the channel closes.
func (r *Runtime) WatchPorts(events <-chan midi.PortEvent, cfg midi.WatcherConfig) {
	go func() {
		for ev := range events {
			switch ev.Type {
			case midi.PortAdded:
				r.addPort(ev.Name, cfg)
			case midi.PortRemoved:
				if r.forgetPort(ev.Name) {
					r.Logf("MIDI port disconnected: %s", ev.Name)
				}
			}
		}
	}()
}

func (r *Runtime) addPort(name string, cfg midi.WatcherConfig) {
	want := cfg.Wants(name)
	if !want && cfg.Port == "" && !cfg.AllPorts {
		// With no explicit selection the startup rule is "first
		// available port", so a plug-in while silent claims it.
		r.mu.Lock()
		noneOpen := len(r.ports) == 0
		r.mu.Unlock()
		open := midi.WatcherConfig{AllPorts: true, Excluded: cfg.Excluded}
		want = noneOpen && open.Wants(name)
	}
	if !want {
		return
	}

	w, err := midi.OpenWatcher(midi.WatcherConfig{Port: name, Excluded: cfg.Excluded})
	if err != nil || len(w.PortNames()) == 0 {
		return
	}

	r.mu.Lock()
	r.sources = append(r.sources, w)
	r.ports = append(r.ports, w.PortNames()...)
	r.mu.Unlock()
	go r.pump(w)
	r.Logf("MIDI port connected: %s", name)
}

// forgetPort drops a name from the open-port list, reporting whether it
// was present.
func (r *Runtime) forgetPort(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.ports {
		if p == name {
			r.ports = append(r.ports[:i], r.ports[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Runtime) pump(src midi.Source) {
	for {
		select {
		case <-r.stopChan:
			return
		case tm, ok := <-src.Messages():
			if !ok {
				return
			}
			r.onMessage(tm)
		}
	}
}

// onMessage records then applies one incoming message. Recording comes
// first so the file holds exactly the stream the controller saw.
func (r *Runtime) onMessage(tm midi.TimedMessage) {
	r.mu.Lock()
	if r.recorder != nil {
		r.recorder.Record(tm.Msg, -1)
	}
	r.ctrl.OnMessage(tm.Msg)
	r.mu.Unlock()
	r.notify()
}

func (r *Runtime) stepLoop() {
	ticker := time.NewTicker(time.Second / stepHz)
	uiTicker := time.NewTicker(time.Second / uiFPS)
	defer ticker.Stop()
	defer uiTicker.Stop()

	last := time.Now()
	for {
		select {
		case <-r.stopChan:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			r.mu.Lock()
			r.env.Step(dt)
			r.mu.Unlock()
		case <-uiTicker.C:
			r.notify()
		}
	}
}

// Snapshot is one consistent view of the session for rendering.
type Snapshot struct {
	Level      float64
	GateActive bool

	Mapping           session.Mapping
	TriggerMode       session.TriggerMode
	NoteSet           []uint8
	ActiveNotes       []uint8
	NoteLevels        map[uint8]float64
	ColorMode         bool
	VelocitySensitive bool
	LearnMapping      bool
	LearnAddToSet     bool
	DebugOverlay      bool
	ADSR              envelope.Params

	Recording bool
	Ports     []string
	Recent    []string // newest first
}

// RGB is the light surface color for this snapshot.
func (s Snapshot) RGB() colors.RGB {
	return colors.ForLevel(s.Level, s.ActiveNotes, s.NoteLevels, s.ColorMode, s.VelocitySensitive)
}

// Snapshot captures the current session under the lock.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	lv := r.env.Level()
	if lv < 0 {
		lv = 0
	} else if lv > 1 {
		lv = 1
	}

	levels := make(map[uint8]float64, len(r.state.NoteLevels))
	for k, v := range r.state.NoteLevels {
		levels[k] = v
	}
	recent := r.eventLog
	if len(recent) > recentLines {
		recent = recent[:recentLines]
	}

	return Snapshot{
		Level:      lv,
		GateActive: r.state.GateActive,

		Mapping:           r.state.Mapping,
		TriggerMode:       r.state.TriggerMode,
		NoteSet:           r.state.SortedNoteSet(),
		ActiveNotes:       r.state.SortedActiveNotes(),
		NoteLevels:        levels,
		ColorMode:         r.state.ColorMode,
		VelocitySensitive: r.state.VelocitySensitive,
		LearnMapping:      r.state.LearnMapping,
		LearnAddToSet:     r.state.LearnAddToSet,
		DebugOverlay:      r.state.DebugOverlay,
		ADSR:              r.state.ADSR,

		Recording: r.recorder != nil,
		Ports:     append([]string(nil), r.ports...),
		Recent:    append([]string(nil), recent...),
	}
}

// ToggleOverlay shows or hides the debug overlay.
func (r *Runtime) ToggleOverlay() {
	r.mu.Lock()
	r.state.DebugOverlay = !r.state.DebugOverlay
	r.mu.Unlock()
	r.notify()
}

// ToggleLearn arms or disarms mapping learn.
func (r *Runtime) ToggleLearn() {
	r.mu.Lock()
	r.state.LearnMapping = !r.state.LearnMapping
	if r.state.LearnMapping {
		r.appendLog("Learn mode ON")
	} else {
		r.appendLog("Learn mode off")
	}
	r.mu.Unlock()
	r.notify()
}

// CycleTriggerMode advances mapped -> all_notes -> note_set. Activity
// and the gate are cleared so notes from the old mode cannot hold the
// light on.
func (r *Runtime) CycleTriggerMode() {
	r.mu.Lock()
	r.state.TriggerMode = r.state.TriggerMode.Cycle()
	r.state.ClearActivity()
	r.env.GateOff()
	r.state.GateActive = false
	r.appendLog(fmt.Sprintf("Trigger mode: %s", r.state.TriggerMode))
	r.mu.Unlock()
	r.notify()
}

// ToggleColorMode switches between grayscale and note-colored light.
func (r *Runtime) ToggleColorMode() {
	r.mu.Lock()
	r.state.ColorMode = !r.state.ColorMode
	if r.state.ColorMode {
		r.appendLog("Color mode ON")
	} else {
		r.appendLog("Color mode off")
	}
	r.mu.Unlock()
	r.notify()
}

// ToggleAddToSet arms add-to-set learn. Arming forces note_set mode so
// the added note has an effect.
func (r *Runtime) ToggleAddToSet() {
	r.mu.Lock()
	r.state.LearnAddToSet = !r.state.LearnAddToSet
	if r.state.LearnAddToSet {
		r.state.TriggerMode = session.TriggerNoteSet
		r.appendLog("Add-to-set learn ON (next note adds)")
	} else {
		r.appendLog("Add-to-set learn off")
	}
	r.mu.Unlock()
	r.notify()
}

// ClearNoteSet empties the note set.
func (r *Runtime) ClearNoteSet() {
	r.mu.Lock()
	r.state.NoteSet = make(map[uint8]struct{})
	r.appendLog("Note set cleared")
	r.mu.Unlock()
	r.notify()
}

// ToggleVelocity switches velocity sensitivity.
func (r *Runtime) ToggleVelocity() {
	r.mu.Lock()
	r.state.VelocitySensitive = !r.state.VelocitySensitive
	if r.state.VelocitySensitive {
		r.appendLog("Velocity sensitive ON")
	} else {
		r.appendLog("Velocity sensitive off")
	}
	r.mu.Unlock()
	r.notify()
}

// ResetADSR restores the instant-gate defaults and resets the envelope.
func (r *Runtime) ResetADSR() {
	r.mu.Lock()
	r.state.ADSR = envelope.DefaultParams()
	r.env.Reset(&r.state.ADSR)
	r.appendLog("ADSR reset")
	r.mu.Unlock()
	r.notify()
}

// AdjustADSR applies one mutation to the envelope parameters, clamps,
// and pushes the result into the running envelope.
func (r *Runtime) AdjustADSR(adjust func(*envelope.Params)) {
	r.mu.Lock()
	adjust(&r.state.ADSR)
	r.state.ADSR.Clamp()
	r.env.SetParams(r.state.ADSR)
	p := r.state.ADSR
	r.appendLog(fmt.Sprintf("ADSR A=%.2f D=%.2f S=%.2f R=%.2f", p.Attack, p.Decay, p.Sustain, p.Release))
	r.mu.Unlock()
	r.notify()
}

// SetPresetName selects the preset an empty SavePreset call writes to.
func (r *Runtime) SetPresetName(name string) {
	r.mu.Lock()
	r.preset = name
	r.mu.Unlock()
}

// SavePreset writes the current state into the named preset folder. An
// empty name targets the session's preset, falling back to "default".
func (r *Runtime) SavePreset(name string) {
	r.mu.Lock()
	if name == "" {
		name = r.preset
	}
	err := session.SavePreset(name, r.state)
	if err != nil {
		r.appendLog(fmt.Sprintf("Preset save failed: %v", err))
	} else {
		r.appendLog(fmt.Sprintf("Saved preset %q", presetDisplayName(name)))
	}
	r.mu.Unlock()
	r.notify()
}

func presetDisplayName(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
