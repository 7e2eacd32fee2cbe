package export

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/session"
)

// Duration modes for MIDI file exports: stop at the last note or CC, or
// run the full file length including trailing meta time.
const (
	DurationEvents = "events"
	DurationFile   = "file"
)

// RecordingSource replays a JSONL recording. State precedence is defaults,
// then Base (usually a preset), then the recording's own meta state unless
// IgnoreMeta, then Overrides last.
type RecordingSource struct {
	Path       string
	Base       *session.StateSnapshot
	IgnoreMeta bool
	Overrides  *session.StateSnapshot
}

func (src RecordingSource) Export(job Job, log *zap.Logger) (Result, error) {
	rec, err := midi.ReadRecording(src.Path)
	if err != nil {
		return Result{}, fmt.Errorf("read recording: %w", err)
	}

	state := session.NewState()
	if src.Base != nil {
		state.ApplySnapshot(*src.Base)
	}
	if !src.IgnoreMeta && rec.Snapshot != nil {
		state.ApplySnapshot(*rec.Snapshot)
	}
	if src.Overrides != nil {
		state.ApplySnapshot(*src.Overrides)
	}

	res, err := job.Run(state, rec.Messages, midi.LastEventTime(rec.Messages), log)
	if err != nil {
		return Result{}, err
	}
	res.RecordingMetaState = rec.Snapshot
	res.EffectiveState = state.Snapshot()
	return res, nil
}

// SMFSource replays a Standard MIDI File. State precedence is defaults,
// then Base, then Overrides. AudioFromMIDI synthesizes the file itself
// into the mp4's audio track via fluidsynth.
type SMFSource struct {
	Path          string
	Channels      []uint8
	DurationMode  string
	Base          *session.StateSnapshot
	Overrides     *session.StateSnapshot
	AudioFromMIDI bool
	SoundFont     string
}

func (src SMFSource) Export(job Job, log *zap.Logger) (Result, error) {
	mode := strings.ToLower(src.DurationMode)
	if mode == "" {
		mode = DurationEvents
	}
	switch mode {
	case DurationEvents, DurationFile:
	default:
		return Result{}, fmt.Errorf("midi duration must be one of: events, file")
	}

	tl, err := midi.ReadSMF(src.Path, src.Channels)
	if err != nil {
		return Result{}, err
	}

	lastEventT := midi.LastEventTime(tl.Messages)
	if mode == DurationFile {
		lastEventT = tl.FileDuration
	}

	state := session.NewState()
	if src.Base != nil {
		state.ApplySnapshot(*src.Base)
	}
	if src.Overrides != nil {
		state.ApplySnapshot(*src.Overrides)
	}

	if src.AudioFromMIDI {
		if job.MP4Path == "" {
			return Result{}, fmt.Errorf("audio-from-midi requires an mp4 path")
		}
		if job.AudioPath != "" {
			return Result{}, fmt.Errorf("provide either an audio path or audio-from-midi, not both")
		}
		if src.SoundFont == "" {
			return Result{}, fmt.Errorf("audio-from-midi requires a soundfont")
		}
		wav, err := SynthesizeAudio(src.Path, src.SoundFont, job.MP4Path, log)
		if err != nil {
			return Result{}, err
		}
		defer os.Remove(wav)
		job.AudioPath = wav
	}

	res, err := job.Run(state, tl.Messages, lastEventT, log)
	if err != nil {
		return Result{}, err
	}
	res.MIDITicksPerBeat = tl.TicksPerBeat
	res.MIDIFileDurationS = tl.FileDuration
	res.MIDIDurationMode = mode
	res.EffectiveState = state.Snapshot()
	return res, nil
}
