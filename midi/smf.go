package midi

import (
	"fmt"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Timeline is a Standard MIDI File flattened to absolute seconds.
type Timeline struct {
	Messages     []TimedMessage
	TicksPerBeat uint16
	// FileDuration covers the whole file, trailing meta events included,
	// which can run past the last note.
	FileDuration float64
}

// ReadSMF merges all tracks of a MIDI file into one stream of note and CC
// messages with absolute-second timestamps, walking tempo changes as it
// goes. Tempo defaults to 120 BPM until the first tempo event. channels
// filters to the given 0-15 channels; empty means all.
func ReadSMF(path string, channels []uint8) (Timeline, error) {
	data, err := smf.ReadFile(path)
	if err != nil {
		return Timeline{}, fmt.Errorf("read %s: %w", path, err)
	}

	ticks, ok := data.TimeFormat.(smf.MetricTicks)
	if !ok {
		return Timeline{}, fmt.Errorf("%s: only metric time format is supported", path)
	}
	tpb := float64(ticks.Resolution())

	// Flatten to absolute ticks. The stable sort keeps same-tick events in
	// track order, so simultaneous events replay deterministically.
	type absEvent struct {
		tick uint64
		msg  smf.Message
	}
	var events []absEvent
	for _, track := range data.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			events = append(events, absEvent{tick: tick, msg: ev.Message})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })

	wanted := make(map[uint8]bool, len(channels))
	for _, ch := range channels {
		wanted[ch] = true
	}

	secPerBeat := 0.5 // 120 BPM
	var absTick uint64
	var absS, duration float64
	var msgs []TimedMessage

	for _, ev := range events {
		if delta := ev.tick - absTick; delta > 0 {
			absS += float64(delta) / tpb * secPerBeat
			absTick = ev.tick
			if absS > duration {
				duration = absS
			}
		}

		var bpm float64
		if ev.msg.GetMetaTempo(&bpm) {
			if bpm > 0 {
				secPerBeat = 60 / bpm
			}
			continue
		}

		m := gomidi.Message(ev.msg)
		var ch, num, val uint8
		switch {
		case m.GetNoteOn(&ch, &num, &val) || m.GetNoteOff(&ch, &num, &val):
		case m.GetControlChange(&ch, &num, &val):
		default:
			continue
		}
		if len(wanted) > 0 && !wanted[ch] {
			continue
		}
		msgs = append(msgs, TimedMessage{T: absS, Msg: m})
	}

	return Timeline{
		Messages:     msgs,
		TicksPerBeat: ticks.Resolution(),
		FileDuration: duration,
	}, nil
}
