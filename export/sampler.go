// Package export renders a MIDI stream offline into image frames and
// video. The same controller and envelope that drive live mode replay the
// stream on a simulated clock, so an export is a deterministic rerun of a
// session rather than a separate renderer.
package export

import (
	"github.com/NicholasCStanley/midiphoria/colors"
	"github.com/NicholasCStanley/midiphoria/envelope"
	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/session"
)

// timeEps absorbs float drift when deciding whether a message falls inside
// a sampling step.
const timeEps = 1e-12

// Sampler replays a timestamped message stream through the session
// controller and reports envelope levels at arbitrary times. Time only
// moves forward; sampling behind the current position reads the current
// level.
type Sampler struct {
	state *session.State
	env   *envelope.Envelope
	ctrl  *session.Controller
	msgs  []midi.TimedMessage
	idx   int
	simT  float64
}

// NewSampler builds a replay pipeline over msgs, which must be sorted by
// timestamp. The state's ADSR parameters seed the envelope; the event log
// stays off during replay.
func NewSampler(state *session.State, msgs []midi.TimedMessage) *Sampler {
	env := envelope.New(state.ADSR)
	return &Sampler{
		state: state,
		env:   env,
		ctrl:  session.NewController(state, env, nil),
		msgs:  msgs,
	}
}

// AdvanceTo feeds every message at or before t into the controller,
// stepping the envelope across the gaps between messages, then steps the
// remainder up to t itself.
func (s *Sampler) AdvanceTo(t float64) {
	t = max(s.simT, t)
	for s.idx < len(s.msgs) && s.msgs[s.idx].T <= t+timeEps {
		tm := s.msgs[s.idx]
		if tm.T > s.simT {
			s.env.Step(tm.T - s.simT)
			s.simT = tm.T
		}
		s.ctrl.OnMessage(tm.Msg)
		s.idx++
	}
	if t > s.simT {
		s.env.Step(t - s.simT)
		s.simT = t
	}
}

// LevelAt advances to t and returns the envelope level clamped to [0, 1].
func (s *Sampler) LevelAt(t float64) float64 {
	s.AdvanceTo(t)
	lv := s.env.Level()
	if lv < 0 {
		return 0
	}
	if lv > 1 {
		return 1
	}
	return lv
}

// FrameValue reduces the frame starting at t0 to a single level using the
// given shutter: one sample at the chosen point in the frame, or the max
// or mean of evenly spread subsamples.
func (s *Sampler) FrameValue(t0, dt float64, shutter, sampleAt string, subsamples int) float64 {
	if shutter == ShutterSample {
		switch sampleAt {
		case SampleStart:
			return s.LevelAt(t0)
		case SampleCenter:
			return s.LevelAt(t0 + 0.5*dt)
		default:
			return s.LevelAt(t0 + dt)
		}
	}

	var maxV, acc float64
	for i := 0; i < subsamples; i++ {
		ts := t0 + (float64(i)+0.5)*dt/float64(subsamples)
		v := s.LevelAt(ts)
		if shutter == ShutterMax {
			if v > maxV {
				maxV = v
			}
		} else {
			acc += v
		}
	}
	if shutter == ShutterMax {
		return maxV
	}
	return acc / float64(subsamples)
}

// FrameRGB maps a level to the flat frame color under the current note
// activity.
func (s *Sampler) FrameRGB(level float64) colors.RGB {
	return colors.ForLevel(level, s.state.SortedActiveNotes(), s.state.NoteLevels,
		s.state.ColorMode, s.state.VelocitySensitive)
}
