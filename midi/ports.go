package midi

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

const scanTimeout = 3 * time.Second

// scanPorts asks the driver for its ports with a timeout guard: CoreMIDI
// can hang when the audio daemon is wedged, and a stuck scan must not take
// the UI down with it.
func scanPorts() ([]drivers.In, []drivers.Out, error) {
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	select {
	case result := <-ch:
		return result.inPorts, result.outPorts, nil
	case <-time.After(scanTimeout):
		return nil, nil, fmt.Errorf("midi port scan timed out after %s", scanTimeout)
	}
}

// InPorts returns the available input ports.
func InPorts() ([]drivers.In, error) {
	ins, _, err := scanPorts()
	return ins, err
}

// InPortNames lists the input port names in driver order.
func InPortNames() ([]string, error) {
	ins, err := InPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// OutPorts returns the available output ports.
func OutPorts() ([]drivers.Out, error) {
	_, outs, err := scanPorts()
	return outs, err
}

// OutPortNames lists the output port names in driver order.
func OutPortNames() ([]string, error) {
	outs, err := OutPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names, nil
}

// MatchPort reports whether a port name contains the pattern,
// case-insensitively.
func MatchPort(name, pattern string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}
