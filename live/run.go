package live

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NicholasCStanley/midiphoria/config"
	"github.com/NicholasCStanley/midiphoria/debug"
	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/session"
	"github.com/NicholasCStanley/midiphoria/theme"
)

// Options selects the inputs for a live session.
type Options struct {
	Port       string // case-insensitive substring; "all" opens every port
	AllPorts   bool
	Generate   bool   // internal pulse generator instead of hardware input
	RecordPath string // write incoming MIDI here when set
	Preset     string // preset the save key writes to; empty means "default"
}

// Run opens the inputs, starts the runtime and blocks in the TUI until
// the user quits.
func Run(state *session.State, cfg *config.Config, opts Options) error {
	rt := NewRuntime(state)
	rt.SetPresetName(opts.Preset)

	if opts.Port == "all" {
		opts.AllPorts = true
		opts.Port = ""
	}

	if opts.Generate {
		gen := midi.NewGenerator()
		rt.AttachSource(gen)
		gen.Start()
		rt.Logf("Internal MIDI generator ON")
	} else {
		watcherCfg := midi.WatcherConfig{
			Port:      opts.Port,
			AllPorts:  opts.AllPorts,
			Preferred: cfg.PreferredPorts,
			Excluded:  cfg.ExcludedPorts,
		}
		watcher, err := midi.OpenWatcher(watcherCfg)
		if err != nil {
			return err
		}
		rt.AttachSource(watcher)
		rt.SetPorts(watcher.PortNames())
		if names := watcher.PortNames(); len(names) > 0 {
			rt.Logf("Opened ports: %s", strings.Join(names, ", "))
		} else {
			rt.Logf("No MIDI input ports opened")
		}

		// Hot-plug: ports appearing later join the session.
		mon := midi.NewPortMonitor()
		monCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go mon.Run(monCtx)
		rt.WatchPorts(mon.Events(), watcherCfg)
	}

	if opts.RecordPath != "" {
		rec := midi.NewRecorder(opts.RecordPath, state.Snapshot())
		if err := rt.AttachRecorder(rec); err != nil {
			rt.Close()
			return err
		}
	}

	rt.Start()

	m := NewModel(rt, theme.New(paletteFor(cfg)))
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		rt.Close()
		return err
	}
	return rt.Close()
}

// paletteFor loads the configured GPL palette, falling back to the
// built-in one.
func paletteFor(cfg *config.Config) *theme.Palette {
	if cfg != nil && cfg.UI.Palette != "" {
		p, err := theme.LoadGPL(cfg.UI.Palette)
		if err == nil {
			return p
		}
		debug.Log("theme", "load palette %s: %v", cfg.UI.Palette, err)
	}
	return theme.Default()
}
