package midi

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/NicholasCStanley/midiphoria/debug"
)

// WatcherConfig selects which input ports to open. Port wins over the
// preferred list; AllPorts wins over both. Excluded ports are never opened.
type WatcherConfig struct {
	Port      string   // case-insensitive substring
	AllPorts  bool
	Preferred []string // substrings tried in order when nothing else is set
	Excluded  []string // substrings of ports to skip
}

// Watcher listens on one or more MIDI input ports and merges their messages
// into a single channel, each stamped with seconds since the watcher opened.
// A full buffer drops the newest message rather than blocking the driver
// callback.
type Watcher struct {
	msgs  chan TimedMessage
	stops []func()
	ports []drivers.In
	names []string
	start time.Time
}

// OpenWatcher scans the available ports and opens the configured selection.
// Ports that fail to open are logged and skipped; a watcher with zero open
// ports is valid and simply stays silent.
func OpenWatcher(cfg WatcherConfig) (*Watcher, error) {
	ins, err := InPorts()
	if err != nil {
		return nil, err
	}

	candidates := make([]drivers.In, 0, len(ins))
	for _, in := range ins {
		if excludedPort(in.String(), cfg.Excluded) {
			continue
		}
		candidates = append(candidates, in)
	}

	var selected []drivers.In
	switch {
	case cfg.AllPorts:
		selected = candidates
	case cfg.Port != "":
		for _, in := range candidates {
			if MatchPort(in.String(), cfg.Port) {
				selected = append(selected, in)
			}
		}
	default:
		for _, pref := range cfg.Preferred {
			for _, in := range candidates {
				if MatchPort(in.String(), pref) {
					selected = append(selected, in)
					break
				}
			}
			if len(selected) > 0 {
				break
			}
		}
		if len(selected) == 0 && len(candidates) > 0 {
			selected = candidates[:1]
		}
	}

	w := &Watcher{
		msgs:  make(chan TimedMessage, 128),
		start: time.Now(),
	}

	for _, in := range selected {
		if err := in.Open(); err != nil {
			debug.Log("midi", "open %s: %v", in.String(), err)
			continue
		}
		name := in.String()
		stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
			t := time.Since(w.start).Seconds()
			select {
			case w.msgs <- TimedMessage{T: t, Msg: msg}:
			default:
				debug.LogEvery(100, "midi", "input buffer full, dropping")
			}
		}, gomidi.HandleError(func(listenErr error) {
			debug.Log("midi", "listener %s: %v", name, listenErr)
		}))
		if err != nil {
			debug.Log("midi", "listen %s: %v", name, err)
			in.Close()
			continue
		}
		w.stops = append(w.stops, stop)
		w.ports = append(w.ports, in)
		w.names = append(w.names, name)
	}

	return w, nil
}

// Messages is the merged input stream. The channel stays open for the
// watcher's lifetime; consumers select against their own quit signal.
func (w *Watcher) Messages() <-chan TimedMessage {
	return w.msgs
}

// PortNames lists the ports actually opened.
func (w *Watcher) PortNames() []string {
	return w.names
}

// Close stops the listeners and closes the ports.
func (w *Watcher) Close() error {
	for _, stop := range w.stops {
		stop()
	}
	for _, in := range w.ports {
		in.Close()
	}
	w.stops = nil
	w.ports = nil
	return nil
}

func excludedPort(name string, excluded []string) bool {
	for _, ex := range excluded {
		if ex != "" && MatchPort(name, ex) {
			return true
		}
	}
	return false
}
