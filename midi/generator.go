package midi

import (
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

const (
	pulseChannel  = 0
	pulseNote     = 60
	pulseVelocity = 127
)

type pulseStep struct {
	msg   gomidi.Message
	delay time.Duration
}

// pulseSchedule is the repeating pattern the generator plays: each entry is
// a message and the delay before the next one.
func pulseSchedule(channel, note, velocity uint8) []pulseStep {
	return []pulseStep{
		{gomidi.NoteOn(channel, note, velocity), 200 * time.Millisecond},
		{gomidi.NoteOff(channel, note), 800 * time.Millisecond},
	}
}

// Generator pulses middle C once a second, for trying the app without
// hardware attached.
type Generator struct {
	msgs      chan TimedMessage
	quit      chan struct{}
	closeOnce sync.Once
	start     time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		msgs: make(chan TimedMessage, 16),
		quit: make(chan struct{}),
	}
}

func (g *Generator) Start() {
	g.start = time.Now()
	go g.run()
}

func (g *Generator) run() {
	steps := pulseSchedule(pulseChannel, pulseNote, pulseVelocity)
	for {
		for _, step := range steps {
			select {
			case g.msgs <- TimedMessage{T: time.Since(g.start).Seconds(), Msg: step.msg}:
			default:
			}
			select {
			case <-g.quit:
				return
			case <-time.After(step.delay):
			}
		}
	}
}

func (g *Generator) Messages() <-chan TimedMessage { return g.msgs }

func (g *Generator) Close() error {
	g.closeOnce.Do(func() { close(g.quit) })
	return nil
}
