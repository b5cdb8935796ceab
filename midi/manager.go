package midi

import (
	"context"
	"sync"
	"time"
)

// DeviceEvent is emitted when a watched port connects or disconnects
type DeviceEvent struct {
	Type   DeviceEventType
	Dir    Direction
	Name   string
	Input  Input  // set on DeviceConnected for DirIn
	Output Output // set on DeviceConnected for DirOut
	Err    error  // set on DeviceFailed
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
	DeviceFailed
)

// Direction of a port
type Direction int

const (
	DirIn Direction = iota
	DirOut
)

func (d Direction) String() string {
	if d == DirOut {
		return "out"
	}
	return "in"
}

// DeviceManager handles hot-plug of the configured input and output ports
type DeviceManager struct {
	wantIn  string
	wantOut string

	mu      sync.RWMutex
	input   Input
	output  Output
	inputs  []string
	outputs []string

	events   chan DeviceEvent
	pollRate time.Duration

	// swappable for tests
	list    func() (ins, outs []string, err error)
	openIn  func(name string) (Input, error)
	openOut func(name string) (Output, error)
}

// NewDeviceManager creates a device manager watching for the named ports.
// Either name may be empty.
func NewDeviceManager(wantIn, wantOut string) *DeviceManager {
	return &DeviceManager{
		wantIn:   wantIn,
		wantOut:  wantOut,
		events:   make(chan DeviceEvent, 16),
		pollRate: time.Second,
		list:     listPortNames,
		openIn:   openInput,
		openOut:  openOutput,
	}
}

// Events returns a channel of connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// PortNames returns the names seen on the last scan
func (dm *DeviceManager) PortNames() (ins, outs []string) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return append([]string(nil), dm.inputs...), append([]string(nil), dm.outputs...)
}

// Connected reports which watched ports are open
func (dm *DeviceManager) Connected() (in, out string) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.input != nil {
		in = dm.input.ID()
	}
	if dm.output != nil {
		out = dm.output.ID()
	}
	return in, out
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	ins, outs, err := dm.list()
	if err != nil {
		// hung driver - skip this scan
		return
	}

	dm.mu.Lock()
	dm.inputs, dm.outputs = ins, outs
	dm.mu.Unlock()

	if name, ok := findName(ins, dm.wantIn); ok {
		dm.mu.RLock()
		open := dm.input != nil
		dm.mu.RUnlock()
		if !open {
			in, err := dm.openIn(name)
			if err != nil {
				dm.emit(DeviceEvent{Type: DeviceFailed, Dir: DirIn, Name: name, Err: err})
			} else {
				dm.mu.Lock()
				dm.input = in
				dm.mu.Unlock()
				dm.emit(DeviceEvent{Type: DeviceConnected, Dir: DirIn, Name: name, Input: in})
			}
		}
	} else {
		dm.mu.Lock()
		in := dm.input
		dm.input = nil
		dm.mu.Unlock()
		if in != nil {
			// announce first so consumers detach before the port goes away
			dm.emit(DeviceEvent{Type: DeviceDisconnected, Dir: DirIn, Name: in.ID()})
			in.Close()
		}
	}

	if name, ok := findName(outs, dm.wantOut); ok {
		dm.mu.RLock()
		open := dm.output != nil
		dm.mu.RUnlock()
		if !open {
			out, err := dm.openOut(name)
			if err != nil {
				dm.emit(DeviceEvent{Type: DeviceFailed, Dir: DirOut, Name: name, Err: err})
			} else {
				dm.mu.Lock()
				dm.output = out
				dm.mu.Unlock()
				dm.emit(DeviceEvent{Type: DeviceConnected, Dir: DirOut, Name: name, Output: out})
			}
		}
	} else {
		dm.mu.Lock()
		out := dm.output
		dm.output = nil
		dm.mu.Unlock()
		if out != nil {
			// announce first so consumers detach before the port goes away
			dm.emit(DeviceEvent{Type: DeviceDisconnected, Dir: DirOut, Name: out.ID()})
			out.Close()
		}
	}
}

// emit never blocks the poll loop; a slow consumer misses events
func (dm *DeviceManager) emit(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.input != nil {
		dm.input.Close()
		dm.input = nil
	}
	if dm.output != nil {
		dm.output.Close()
		dm.output = nil
	}
}

func findName(names []string, want string) (string, bool) {
	for _, n := range names {
		if n == want {
			return n, true
		}
	}
	for _, n := range names {
		if MatchName(n, want) {
			return n, true
		}
	}
	return "", false
}

func listPortNames() ([]string, []string, error) {
	p, err := ListPorts(ScanTimeout)
	if err != nil {
		return nil, nil, err
	}
	return p.InNames(), p.OutNames(), nil
}

func openInput(name string) (Input, error) {
	p, err := ListPorts(ScanTimeout)
	if err != nil {
		return nil, err
	}
	in, err := p.FindIn(name)
	if err != nil {
		return nil, err
	}
	return NewPortInput(name, in)
}

func openOutput(name string) (Output, error) {
	p, err := ListPorts(ScanTimeout)
	if err != nil {
		return nil, err
	}
	out, err := p.FindOut(name)
	if err != nil {
		return nil, err
	}
	return NewPortOutput(name, out)
}
