package midi

import (
	"context"
	"time"
)

// PortEvent is emitted when an input port appears or disappears.
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortAdded PortEventType = iota
	PortRemoved
)

// PortMonitor polls the driver for input port changes so a controller
// plugged in mid-session can join without a restart. rtmidi has no
// change callback, so polling once a second is the portable option.
type PortMonitor struct {
	events   chan PortEvent
	pollRate time.Duration
	list     func() ([]string, error)
	known    map[string]bool
}

func NewPortMonitor() *PortMonitor {
	return &PortMonitor{
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
		list:     InPortNames,
		known:    make(map[string]bool),
	}
}

// Events is the change stream. Closed when Run returns.
func (pm *PortMonitor) Events() <-chan PortEvent {
	return pm.events
}

// Run polls until the context ends. The first scan only records a
// baseline; ports present at startup are not replayed as connects.
func (pm *PortMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(pm.pollRate)
	defer ticker.Stop()

	pm.scan(false)
	for {
		select {
		case <-ctx.Done():
			close(pm.events)
			return
		case <-ticker.C:
			pm.scan(true)
		}
	}
}

func (pm *PortMonitor) scan(emit bool) {
	names, err := pm.list()
	if err != nil {
		// A hung scan skips this round rather than blocking the loop.
		return
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
		if !pm.known[name] {
			pm.known[name] = true
			if emit {
				pm.emit(PortEvent{Type: PortAdded, Name: name})
			}
		}
	}
	for name := range pm.known {
		if !seen[name] {
			delete(pm.known, name)
			if emit {
				pm.emit(PortEvent{Type: PortRemoved, Name: name})
			}
		}
	}
}

// emit never blocks; a full buffer drops the event. A stalled consumer
// must not wedge the poll loop.
func (pm *PortMonitor) emit(ev PortEvent) {
	select {
	case pm.events <- ev:
	default:
	}
}

// Wants reports whether a port name falls inside this selection. Used
// for hot-plugged ports, which bypass the scan in OpenWatcher.
func (cfg WatcherConfig) Wants(name string) bool {
	if excludedPort(name, cfg.Excluded) {
		return false
	}
	switch {
	case cfg.AllPorts:
		return true
	case cfg.Port != "":
		return MatchPort(name, cfg.Port)
	default:
		for _, pref := range cfg.Preferred {
			if MatchPort(name, pref) {
				return true
			}
		}
		return false
	}
}
