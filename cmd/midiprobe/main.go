package main

import (
	"fmt"
	"os"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/NicholasCStanley/midiphoria/midi"
	"github.com/NicholasCStanley/midiphoria/session"
)

func main() {
	defer gomidi.CloseDriver()

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitor(argOr(2, ""))
	case "pulse":
		pulse(argOr(2, ""))
	default:
		usage()
	}
}

func argOr(i int, fallback string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return fallback
}

func usage() {
	fmt.Println("midiprobe - MIDI diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list             - List MIDI input and output ports")
	fmt.Println("  monitor [port]   - Print incoming messages (all ports, or a substring match)")
	fmt.Println("  pulse [port]     - Send a test note to an output port once per second")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	ins, err := midi.InPortNames()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for i, name := range ins {
		fmt.Printf("  %d: %s\n", i, name)
	}

	fmt.Println("")
	fmt.Println("=== MIDI Output Ports ===")
	outs, err := midi.OutPortNames()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for i, name := range outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func monitor(port string) {
	cfg := midi.WatcherConfig{AllPorts: true}
	if port != "" {
		cfg = midi.WatcherConfig{Port: port}
	}

	w, err := midi.OpenWatcher(cfg)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer w.Close()

	names := w.PortNames()
	if len(names) == 0 {
		fmt.Println("No input ports opened")
		return
	}
	for _, name := range names {
		fmt.Printf("Listening on %s\n", name)
	}
	fmt.Println("Ctrl+C to exit.")

	for tm := range w.Messages() {
		fmt.Printf("%8.3f  %s\n", tm.T, session.FormatMessage(tm.Msg))
	}
}

func pulse(port string) {
	outs, err := midi.OutPorts()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(outs) == 0 {
		fmt.Println("No output ports")
		return
	}

	out := outs[0]
	if port != "" {
		found := false
		for _, p := range outs {
			if midi.MatchPort(p.String(), port) {
				out = p
				found = true
				break
			}
		}
		if !found {
			fmt.Printf("No output port matches %q\n", port)
			return
		}
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		fmt.Printf("error opening %s: %v\n", out.String(), err)
		return
	}
	fmt.Printf("Pulsing C4 on %s. Ctrl+C to exit.\n", out.String())

	for {
		if err := send(gomidi.NoteOn(0, 60, 100)); err != nil {
			fmt.Printf("send: %v\n", err)
			return
		}
		time.Sleep(200 * time.Millisecond)
		if err := send(gomidi.NoteOff(0, 60)); err != nil {
			fmt.Printf("send: %v\n", err)
			return
		}
		time.Sleep(800 * time.Millisecond)
	}
}
