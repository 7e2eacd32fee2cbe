// Package envelope implements the ADSR envelope that turns gate activity
// into a brightness level in [0, 1].
package envelope

// Params holds the ADSR shape. Attack, Decay and Release are durations in
// seconds, Sustain is a level in [0, 1].
type Params struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

// DefaultParams is the organ shape: instant full level while gated, instant
// silence on gate off.
func DefaultParams() Params {
	return Params{Attack: 0, Decay: 0, Sustain: 1, Release: 0}
}

// Clamp forces the parameters into their legal ranges.
func (p *Params) Clamp() {
	p.Attack = max(0, p.Attack)
	p.Decay = max(0, p.Decay)
	p.Sustain = min(1, max(0, p.Sustain))
	p.Release = max(0, p.Release)
}

// Phase identifies the segment the envelope is currently traversing.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseAttack  Phase = "attack"
	PhaseDecay   Phase = "decay"
	PhaseSustain Phase = "sustain"
	PhaseRelease Phase = "release"
)

// levelEps absorbs float drift at segment boundaries.
const levelEps = 1e-6

// Envelope is a single gate-driven ADSR generator. It has no clock of its
// own; callers advance it with Step. Not safe for concurrent use.
type Envelope struct {
	params Params
	level  float64
	target float64
	gate   bool
	phase  Phase
}

func New(params Params) *Envelope {
	params.Clamp()
	return &Envelope{params: params, phase: PhaseIdle}
}

// Level is the current output in [0, 1].
func (e *Envelope) Level() float64 { return e.level }

// Phase reports the current segment.
func (e *Envelope) Phase() Phase { return e.phase }

// Gated reports whether the gate is held.
func (e *Envelope) Gated() bool { return e.gate }

// Params returns the current ADSR shape.
func (e *Envelope) Params() Params { return e.params }

// SetParams swaps the ADSR shape without disturbing the running state.
func (e *Envelope) SetParams(params Params) {
	params.Clamp()
	e.params = params
}

// Reset returns the envelope to silence and optionally installs new params.
func (e *Envelope) Reset(params *Params) {
	if params != nil {
		p := *params
		p.Clamp()
		e.params = p
	}
	e.level = 0
	e.target = 0
	e.gate = false
	e.phase = PhaseIdle
}

// GateOn opens the gate toward target. If the gate is already held and the
// envelope is mid-cycle, only the target moves: the attack does not
// retrigger, so overlapping notes cannot make the output flicker.
func (e *Envelope) GateOn(target float64) {
	target = clamp01(target)

	if e.gate && e.phase != PhaseIdle && e.phase != PhaseRelease {
		e.target = target
		if e.phase == PhaseSustain {
			e.level = e.target * e.params.Sustain
		}
		return
	}

	e.gate = true
	e.target = target
	if e.params.Attack <= 0 {
		e.level = e.target
		e.phase = afterAttack(e.params)
	} else {
		e.phase = PhaseAttack
	}
}

// SetTarget moves the target level while keeping gate and phase as they are.
func (e *Envelope) SetTarget(target float64) {
	e.target = clamp01(target)
	if e.phase == PhaseSustain {
		e.level = e.target * e.params.Sustain
	}
}

// GateOff releases the gate. With a zero release time the output drops to
// silence immediately.
func (e *Envelope) GateOff() {
	e.gate = false
	if e.params.Release <= 0 {
		e.level = 0
		e.phase = PhaseIdle
	} else {
		e.phase = PhaseRelease
	}
}

// Step advances the envelope by dt seconds. Negative dt is treated as zero.
// Ramps are linear with slope 1/duration, independent of the target, so a
// quiet note attacks in less wall time than a loud one.
func (e *Envelope) Step(dt float64) {
	dt = max(0, dt)
	p := e.params

	switch e.phase {
	case PhaseIdle:
		return

	case PhaseAttack:
		if p.Attack <= 0 {
			e.level = e.target
			e.phase = afterAttack(p)
			return
		}
		e.level = min(e.target, e.level+dt/p.Attack)
		if e.level >= e.target-levelEps {
			e.phase = afterAttack(p)
		}

	case PhaseDecay:
		if p.Decay <= 0 {
			e.level = e.target * p.Sustain
			e.phase = PhaseSustain
			return
		}
		floor := e.target * p.Sustain
		e.level = max(floor, e.level-dt/p.Decay)
		if e.level <= floor+levelEps {
			e.phase = PhaseSustain
		}

	case PhaseSustain:
		if e.gate {
			e.level = e.target * p.Sustain
		}

	case PhaseRelease:
		if p.Release <= 0 {
			e.level = 0
			e.phase = PhaseIdle
			return
		}
		e.level = max(0, e.level-dt/p.Release)
		if e.level <= levelEps {
			e.phase = PhaseIdle
		}
	}
}

func afterAttack(p Params) Phase {
	if p.Decay > 0 {
		return PhaseDecay
	}
	return PhaseSustain
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
