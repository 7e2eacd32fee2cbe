// Package midi wraps device input, recordings and MIDI file reading behind
// one message vocabulary. Live mode consumes Sources; export consumes the
// timestamped slices produced by the recording and SMF readers.
package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// TimedMessage is a raw MIDI message with its position on the owning
// stream's timeline, in seconds.
type TimedMessage struct {
	T   float64
	Msg gomidi.Message
}

// Source is anything that feeds timestamped messages into live mode: a
// hardware watcher or the internal generator.
type Source interface {
	Messages() <-chan TimedMessage
	Close() error
}

// LastEventTime returns the timestamp of the final message, or zero for an
// empty stream. Export uses it to size the default window.
func LastEventTime(msgs []TimedMessage) float64 {
	if len(msgs) == 0 {
		return 0
	}
	return msgs[len(msgs)-1].T
}
