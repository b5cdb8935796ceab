package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	ErrPortNotFound = errors.New("midi port not found")
	ErrScanTimeout  = errors.New("midi port scan timed out")
)

// ScanTimeout bounds a port listing (CoreMIDI can hang)
const ScanTimeout = 3 * time.Second

// Ports is a snapshot of the system's MIDI ports
type Ports struct {
	Ins  []drivers.In
	Outs []drivers.Out
}

// InNames returns input port names in driver order
func (p Ports) InNames() []string {
	names := make([]string, len(p.Ins))
	for i, in := range p.Ins {
		names[i] = in.String()
	}
	return names
}

// OutNames returns output port names in driver order
func (p Ports) OutNames() []string {
	names := make([]string, len(p.Outs))
	for i, out := range p.Outs {
		names[i] = out.String()
	}
	return names
}

// ListPorts lists ports, giving up after timeout
func ListPorts(timeout time.Duration) (Ports, error) {
	ch := make(chan Ports, 1)
	go func() {
		ch <- Ports{
			Ins:  gomidi.GetInPorts(),
			Outs: gomidi.GetOutPorts(),
		}
	}()

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return Ports{}, ErrScanTimeout
	}
}

// MatchName reports whether a port name matches a wanted name.
// Exact match first, then case-insensitive substring.
func MatchName(portName, want string) bool {
	if want == "" {
		return false
	}
	if portName == want {
		return true
	}
	return strings.Contains(strings.ToLower(portName), strings.ToLower(want))
}

// FindIn finds an input port by name
func (p Ports) FindIn(want string) (drivers.In, error) {
	for _, in := range p.Ins {
		if in.String() == want {
			return in, nil
		}
	}
	for _, in := range p.Ins {
		if MatchName(in.String(), want) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("input %q: %w (available: %v)", want, ErrPortNotFound, p.InNames())
}

// FindOut finds an output port by name
func (p Ports) FindOut(want string) (drivers.Out, error) {
	for _, out := range p.Outs {
		if out.String() == want {
			return out, nil
		}
	}
	for _, out := range p.Outs {
		if MatchName(out.String(), want) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("output %q: %w (available: %v)", want, ErrPortNotFound, p.OutNames())
}

// CloseDriver releases the registered driver
func CloseDriver() {
	gomidi.CloseDriver()
}
