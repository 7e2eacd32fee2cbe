package session

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/NicholasCStanley/midiphoria/envelope"
)

// Controller applies MIDI messages to a State and its envelope. Live preview
// and offline export share it, so any behavior change here shifts both. It
// does no locking; callers serialize access.
type Controller struct {
	state *State
	env   *envelope.Envelope
	log   func(string)
}

// NewController wires a controller to state and envelope. log may be nil;
// when set it receives one line per processed message plus learn/mode
// announcements.
func NewController(state *State, env *envelope.Envelope, log func(string)) *Controller {
	return &Controller{state: state, env: env, log: log}
}

func (c *Controller) logf(format string, args ...any) {
	if c.log != nil {
		c.log(fmt.Sprintf(format, args...))
	}
}

// FormatMessage renders a message for the event log. Channels display
// 1-based to match hardware labeling.
func FormatMessage(msg gomidi.Message) string {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return fmt.Sprintf("note_on ch=%d note=%d vel=%d", ch+1, key, vel)
	case msg.GetNoteOff(&ch, &key, &vel):
		return fmt.Sprintf("note_off ch=%d note=%d vel=%d", ch+1, key, vel)
	case msg.GetControlChange(&ch, &key, &vel):
		return fmt.Sprintf("cc ch=%d cc=%d val=%d", ch+1, key, vel)
	}
	return msg.String()
}

// OnMessage runs one message through learn handling, note tracking and the
// gate logic, in that order.
func (c *Controller) OnMessage(msg gomidi.Message) {
	c.logf("%s", FormatMessage(msg))

	var ch, key, vel uint8

	if c.state.LearnAddToSet {
		if msg.GetNoteStart(&ch, &key, &vel) {
			c.state.NoteSet[key] = struct{}{}
			c.state.LearnAddToSet = false
			c.state.TriggerMode = TriggerNoteSet
			c.logf("Added NOTE %d to set", key)
		}
	}

	if c.state.LearnMapping {
		if msg.GetNoteStart(&ch, &key, &vel) {
			c.state.Mapping = Mapping{Kind: MapNote, Channel: ch, Number: key}
			c.state.LearnMapping = false
			c.state.TriggerMode = TriggerMapped
			c.logf("Mapped NOTE ch=%d note=%d", ch+1, key)
		}
		if msg.GetControlChange(&ch, &key, &vel) {
			c.state.Mapping = Mapping{Kind: MapCC, Channel: ch, Number: key}
			c.state.LearnMapping = false
			c.state.TriggerMode = TriggerMapped
			c.logf("Mapped CC ch=%d cc=%d", ch+1, key)
		}
	}

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		// An active note may always finish its lifecycle even if the mode
		// changed underneath it, otherwise it would hold the gate forever.
		if !c.noteAllowed(ch, key) && !c.state.noteActive(key) {
			return
		}
		level := 1.0
		if c.state.VelocitySensitive {
			level = float64(vel) / 127
		}
		c.state.ActiveNotes[key] = struct{}{}
		c.state.NoteLevels[key] = level
		c.state.LastVelocity = level
		c.updateGateTarget()

	case msg.GetNoteEnd(&ch, &key):
		if !c.noteAllowed(ch, key) && !c.state.noteActive(key) {
			return
		}
		delete(c.state.ActiveNotes, key)
		delete(c.state.NoteLevels, key)
		c.updateGateTarget()

	case msg.GetControlChange(&ch, &key, &vel):
		if c.state.TriggerMode != TriggerMapped || c.state.Mapping.Kind != MapCC {
			return
		}
		if !c.state.Mapping.Matches(msg) {
			return
		}
		var level float64
		switch {
		case c.state.VelocitySensitive:
			level = float64(vel) / 127
		case vel >= 64:
			level = 1
		}
		if level > 0 {
			c.env.GateOn(level)
			c.state.GateActive = true
		} else {
			c.env.GateOff()
			c.state.GateActive = false
		}
	}
}

func (c *Controller) noteAllowed(ch, key uint8) bool {
	switch c.state.TriggerMode {
	case TriggerAllNotes:
		return true
	case TriggerNoteSet:
		_, ok := c.state.NoteSet[key]
		return ok
	default:
		m := c.state.Mapping
		return m.Kind == MapNote && m.Channel == ch && m.Number == key
	}
}

// updateGateTarget reconciles the envelope gate with the set of sounding
// notes: gate on while any note sounds, target following the loudest one
// when velocity sensitivity is on.
func (c *Controller) updateGateTarget() {
	if len(c.state.ActiveNotes) > 0 {
		target := 1.0
		if c.state.VelocitySensitive {
			target = 0
			for _, lv := range c.state.NoteLevels {
				target = max(target, lv)
			}
		}
		if !c.state.GateActive {
			c.env.GateOn(target)
			c.state.GateActive = true
		} else {
			c.env.SetTarget(target)
		}
		return
	}
	if c.state.GateActive {
		c.env.GateOff()
		c.state.GateActive = false
	}
}
