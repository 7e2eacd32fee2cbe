package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/NicholasCStanley/midiphoria/config"
	"github.com/NicholasCStanley/midiphoria/debug"
	"github.com/NicholasCStanley/midiphoria/export"
	"github.com/NicholasCStanley/midiphoria/live"
	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/session"
)

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// channelList collects a repeatable integer flag.
type channelList []int

func (c *channelList) String() string {
	parts := make([]string, len(*c))
	for i, v := range *c {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (c *channelList) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*c = append(*c, n)
	return nil
}

// cliFlags holds every flag plus which ones were explicitly set, so
// unset flags never override a recording's saved state.
type cliFlags struct {
	set map[string]bool

	listPorts   bool
	listPresets bool
	port        string
	allPorts    bool
	generate    bool
	record      string
	preset      string
	palette     string
	debugLog    bool

	triggerMode       string
	colorMode         bool
	velocitySensitive bool
	attack            float64
	decay             float64
	sustain           float64
	release           float64
	mapChannel        int
	mapNote           int
	noteSet           string

	exportRecording string
	ignoreRecState  bool
	exportMIDI      string
	midiChannels    channelList
	midiDuration    string

	fps           float64
	width         int
	height        int
	outDir        string
	frameFormat   string
	mp4           string
	audio         string
	audioFromMIDI bool
	soundFont     string
	shutter       string
	subsamples    int
	sampleAt      string
	startTime     float64
	endTime       float64
	tail          float64
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("midiphoria", flag.ContinueOnError)

	fs.BoolVar(&f.listPorts, "list-ports", false, "list MIDI input ports and exit")
	fs.BoolVar(&f.listPresets, "list-presets", false, "list saved presets and exit")
	fs.StringVar(&f.port, "port", "", "substring to match a MIDI input port, or \"all\"")
	fs.BoolVar(&f.allPorts, "all-ports", false, "open all MIDI input ports")
	fs.BoolVar(&f.generate, "generate", false, "enable the internal test MIDI generator")
	fs.StringVar(&f.record, "record", "", "record incoming MIDI to a JSONL `file` for later export")
	fs.StringVar(&f.preset, "preset", "", "load this saved preset at startup; live mode's save key targets it")
	fs.StringVar(&f.palette, "palette", "", "GPL palette `file` for the live UI")
	fs.BoolVar(&f.debugLog, "debug", false, "write internals to ~/.config/midiphoria/debug.log")

	fs.StringVar(&f.triggerMode, "trigger-mode", "", "initial trigger mode: mapped, all_notes or note_set")
	fs.BoolVar(&f.colorMode, "color-mode", false, "start with color-per-note on")
	fs.BoolVar(&f.velocitySensitive, "velocity-sensitive", false, "start with velocity sensitivity on")
	fs.Float64Var(&f.attack, "attack", 0, "initial ADSR attack seconds")
	fs.Float64Var(&f.decay, "decay", 0, "initial ADSR decay seconds")
	fs.Float64Var(&f.sustain, "sustain", 1, "initial ADSR sustain level 0-1")
	fs.Float64Var(&f.release, "release", 0, "initial ADSR release seconds")
	fs.IntVar(&f.mapChannel, "map-channel", 1, "initial mapping channel (1-16)")
	fs.IntVar(&f.mapNote, "map-note", 60, "initial mapping note (0-127)")
	fs.StringVar(&f.noteSet, "note-set", "", "comma-separated initial note set, e.g. '36,38,42'")

	fs.StringVar(&f.exportRecording, "export-recording", "", "export frames/video from a recorded JSONL `file`, then exit")
	fs.BoolVar(&f.ignoreRecState, "ignore-recording-state", false, "ignore the recording's state snapshot and use flags instead")
	fs.StringVar(&f.exportMIDI, "export-midi-file", "", "export frames/video from a .mid `file`, then exit")
	fs.Var(&f.midiChannels, "midi-channel", "channel filter for -export-midi-file (1-16); repeatable")
	fs.StringVar(&f.midiDuration, "midi-duration", export.DurationEvents,
		"events: stop at the last note/CC; file: run the full file length")

	fs.Float64Var(&f.fps, "fps", 24, "export frames per second")
	fs.IntVar(&f.width, "width", 512, "export width in pixels")
	fs.IntVar(&f.height, "height", 512, "export height in pixels")
	fs.StringVar(&f.outDir, "out-dir", "", "output `directory` for frame files")
	fs.StringVar(&f.frameFormat, "frame-format", export.FormatPPM, "frame format for -out-dir: ppm or png")
	fs.StringVar(&f.mp4, "mp4", "", "MP4 output `path` (requires ffmpeg)")
	fs.StringVar(&f.audio, "audio", "", "audio `file` to mux into the MP4")
	fs.BoolVar(&f.audioFromMIDI, "audio-from-midi", false, "render the MIDI file to audio via FluidSynth and mux it")
	fs.StringVar(&f.soundFont, "soundfont", "", "SoundFont .sf2 `path` for -audio-from-midi")
	fs.StringVar(&f.shutter, "shutter", export.ShutterSample, "frame shutter: sample, max or avg")
	fs.IntVar(&f.subsamples, "subsamples", 8, "subsamples per frame for avg/max")
	fs.StringVar(&f.sampleAt, "sample-at", export.SampleEnd, "sample point for shutter=sample: start, center or end")
	fs.Float64Var(&f.startTime, "start-time", 0, "export start time in seconds")
	fs.Float64Var(&f.endTime, "end-time", 0, "export end time in seconds")
	fs.Float64Var(&f.tail, "tail", 1, "extra seconds past the last event")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

func run(f *cliFlags) error {
	defer gomidi.CloseDriver()

	if f.triggerMode != "" && !session.TriggerMode(f.triggerMode).Valid() {
		return fmt.Errorf("invalid trigger mode %q (want mapped, all_notes or note_set)", f.triggerMode)
	}

	if f.debugLog {
		if err := debug.Enable(); err != nil {
			return fmt.Errorf("enable debug log: %w", err)
		}
		defer debug.Disable()
	}

	if f.listPresets {
		names, err := session.ListPresets()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	if f.listPorts {
		names, err := midi.InPortNames()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	if f.exportRecording != "" {
		return runExportRecording(f)
	}
	if f.exportMIDI != "" {
		return runExportMIDI(f)
	}
	return runLive(f)
}

func runLive(f *cliFlags) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	state := session.NewState()
	state.ColorMode = cfg.UI.ColorMode
	state.VelocitySensitive = cfg.UI.VelocitySensitive
	if snap, err := f.presetBase(); err != nil {
		return err
	} else if snap != nil {
		state.ApplySnapshot(*snap)
	}
	f.applyState(state, false)

	if f.palette != "" {
		cfg.UI.Palette = f.palette
	}

	return live.Run(state, cfg, live.Options{
		Port:       f.port,
		AllPorts:   f.allPorts,
		Generate:   f.generate,
		RecordPath: f.record,
		Preset:     f.preset,
	})
}

// presetBase loads the snapshot named by -preset, nil when the flag is
// unset. A named preset that cannot be read is an error; silently falling
// back would export with the wrong state.
func (f *cliFlags) presetBase() (*session.StateSnapshot, error) {
	if f.preset == "" {
		return nil, nil
	}
	snap, err := session.LoadPreset(f.preset, "")
	if err != nil {
		return nil, fmt.Errorf("load preset %q: %w", f.preset, err)
	}
	return &snap, nil
}

func runExportRecording(f *cliFlags) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	base, err := f.presetBase()
	if err != nil {
		return err
	}

	src := export.RecordingSource{
		Path:       f.exportRecording,
		Base:       base,
		IgnoreMeta: f.ignoreRecState,
		Overrides:  f.overrides(),
	}
	res, err := src.Export(f.job(), log)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runExportMIDI(f *cliFlags) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	state := session.NewState()
	if snap, err := f.presetBase(); err != nil {
		return err
	} else if snap != nil {
		state.ApplySnapshot(*snap)
	}
	f.applyState(state, true)
	snap := state.Snapshot()

	var channels []uint8
	for _, ch := range f.midiChannels {
		if ch >= 1 && ch <= 16 {
			channels = append(channels, uint8(ch-1))
		}
	}

	soundFont := f.soundFont
	if soundFont == "" && f.audioFromMIDI {
		if cfg, err := config.Load(); err == nil {
			soundFont = cfg.SoundFont
		}
	}

	src := export.SMFSource{
		Path:          f.exportMIDI,
		Channels:      channels,
		DurationMode:  f.midiDuration,
		Base:          &snap,
		AudioFromMIDI: f.audioFromMIDI,
		SoundFont:     soundFont,
	}
	res, err := src.Export(f.job(), log)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

// applyState pushes explicitly set flags into a fresh state. MIDI file
// exports with no mapping flags default to all_notes, since a file's
// notes rarely match the default mapping.
func (f *cliFlags) applyState(state *session.State, midiExport bool) {
	trigger := f.triggerMode
	if midiExport &&
		(trigger == "" || trigger == string(session.TriggerMapped)) &&
		state.TriggerMode == session.TriggerMapped && len(state.NoteSet) == 0 &&
		!f.set["map-note"] && !f.set["map-channel"] && f.noteSet == "" {
		trigger = string(session.TriggerAllNotes)
	}
	if trigger != "" {
		state.TriggerMode = session.TriggerMode(trigger)
	}
	if f.set["color-mode"] {
		state.ColorMode = f.colorMode
	}
	if f.set["velocity-sensitive"] {
		state.VelocitySensitive = f.velocitySensitive
	}
	if f.set["attack"] {
		state.ADSR.Attack = f.attack
	}
	if f.set["decay"] {
		state.ADSR.Decay = f.decay
	}
	if f.set["sustain"] {
		state.ADSR.Sustain = f.sustain
	}
	if f.set["release"] {
		state.ADSR.Release = f.release
	}
	state.ADSR.Clamp()

	if f.set["map-channel"] {
		state.Mapping.Channel = session.ClampChannel(f.mapChannel)
	}
	if f.set["map-note"] {
		state.Mapping.Kind = session.MapNote
		state.Mapping.Number = session.ClampNote(f.mapNote)
	}

	if f.noteSet != "" {
		for _, n := range session.ParseNoteSet(f.noteSet) {
			state.NoteSet[n] = struct{}{}
		}
		if len(state.NoteSet) > 0 {
			state.TriggerMode = session.TriggerNoteSet
		}
	}
}

// overrides builds the snapshot of explicitly set flags, applied on top
// of a recording's saved state. Returns nil when no state flag was set.
func (f *cliFlags) overrides() *session.StateSnapshot {
	var o session.StateSnapshot
	present := false

	if f.set["trigger-mode"] {
		tm := session.TriggerMode(f.triggerMode)
		o.TriggerMode = &tm
		present = true
	}
	if f.set["color-mode"] {
		v := f.colorMode
		o.ColorMode = &v
		present = true
	}
	if f.set["velocity-sensitive"] {
		v := f.velocitySensitive
		o.VelocitySensitive = &v
		present = true
	}
	if f.set["map-channel"] || f.set["map-note"] {
		m := &session.MappingSnapshot{}
		if f.set["map-channel"] {
			ch := f.mapChannel - 1
			m.Channel = &ch
		}
		if f.set["map-note"] {
			kind := session.MapNote
			n := f.mapNote
			m.Kind = &kind
			m.Number = &n
		}
		o.Mapping = m
		present = true
	}
	if f.set["attack"] || f.set["decay"] || f.set["sustain"] || f.set["release"] {
		a := &session.ADSRSnapshot{}
		if f.set["attack"] {
			v := f.attack
			a.Attack = &v
		}
		if f.set["decay"] {
			v := f.decay
			a.Decay = &v
		}
		if f.set["sustain"] {
			v := f.sustain
			a.Sustain = &v
		}
		if f.set["release"] {
			v := f.release
			a.Release = &v
		}
		o.ADSR = a
		present = true
	}
	if f.noteSet != "" {
		notes := session.ParseNoteSet(f.noteSet)
		ns := make([]int, len(notes))
		for i, n := range notes {
			ns[i] = int(n)
		}
		o.NoteSet = ns
		present = true
	}

	if !present {
		return nil
	}
	return &o
}

func (f *cliFlags) job() export.Job {
	return export.Job{
		FPS:        f.fps,
		Width:      f.width,
		Height:     f.height,
		FramesDir:  f.outDir,
		Format:     f.frameFormat,
		MP4Path:    f.mp4,
		AudioPath:  f.audio,
		Shutter:    f.shutter,
		SampleAt:   f.sampleAt,
		Subsamples: f.subsamples,
		Start:      f.startTime,
		End:        f.endTime,
		HasEnd:     f.set["end-time"],
		Tail:       f.tail,
	}
}

func printResult(res export.Result) {
	fmt.Printf("Exported %d frames @ %gfps (%dx%d)\n", res.Frames, res.FPS, res.Width, res.Height)
	if res.FramesDir != "" {
		fmt.Printf("Frames: %s\n", res.FramesDir)
	}
	if res.MP4Path != "" {
		fmt.Printf("MP4: %s\n", res.MP4Path)
	}
}
