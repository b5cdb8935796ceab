package midi

import (
	"errors"
	"sync"
	"testing"
)

type fakeInput struct {
	id     string
	events chan Event
	closed bool
}

func (f *fakeInput) ID() string           { return f.id }
func (f *fakeInput) Events() <-chan Event { return f.events }
func (f *fakeInput) Close() error         { f.closed = true; return nil }

type fakeOutput struct {
	id     string
	mu     sync.Mutex
	sent   []Event
	closed bool
}

func (f *fakeOutput) ID() string { return f.id }
func (f *fakeOutput) Send(e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return nil
}
func (f *fakeOutput) Close() error { f.closed = true; return nil }

func newTestManager(ins, outs *[]string) *DeviceManager {
	dm := NewDeviceManager("keystation", "synth")
	dm.list = func() ([]string, []string, error) {
		return *ins, *outs, nil
	}
	dm.openIn = func(name string) (Input, error) {
		return &fakeInput{id: name, events: make(chan Event)}, nil
	}
	dm.openOut = func(name string) (Output, error) {
		return &fakeOutput{id: name}, nil
	}
	return dm
}

func drain(dm *DeviceManager) []DeviceEvent {
	var evs []DeviceEvent
	for {
		select {
		case ev := <-dm.events:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func TestDeviceManagerConnectDisconnect(t *testing.T) {
	ins := []string{"IAC Bus 1", "Keystation 49 MIDI 1"}
	outs := []string{"IAC Bus 1", "Synth Out"}
	dm := newTestManager(&ins, &outs)

	dm.scan()
	evs := drain(dm)
	if len(evs) != 2 {
		t.Fatalf("Expected 2 connect events, got %d: %+v", len(evs), evs)
	}
	if evs[0].Type != DeviceConnected || evs[0].Dir != DirIn || evs[0].Input == nil {
		t.Errorf("Unexpected input event %+v", evs[0])
	}
	if evs[1].Type != DeviceConnected || evs[1].Dir != DirOut || evs[1].Output == nil {
		t.Errorf("Unexpected output event %+v", evs[1])
	}

	in, out := dm.Connected()
	if in != "Keystation 49 MIDI 1" || out != "Synth Out" {
		t.Errorf("Unexpected connected ports %q %q", in, out)
	}

	// a second scan with the same ports is quiet
	dm.scan()
	if evs := drain(dm); len(evs) != 0 {
		t.Errorf("Expected no events on rescan, got %+v", evs)
	}

	// unplug the keyboard
	opened := evs[0].Input.(*fakeInput)
	ins = []string{"IAC Bus 1"}
	dm.scan()
	evs = drain(dm)
	if len(evs) != 1 || evs[0].Type != DeviceDisconnected || evs[0].Dir != DirIn {
		t.Fatalf("Expected input disconnect, got %+v", evs)
	}
	if !opened.closed {
		t.Error("Disconnected input should be closed")
	}

	names, _ := dm.PortNames()
	if len(names) != 1 {
		t.Errorf("Expected 1 input name, got %v", names)
	}
}

func TestDeviceManagerOpenFailure(t *testing.T) {
	ins := []string{"Keystation"}
	outs := []string{}
	dm := newTestManager(&ins, &outs)
	dm.openIn = func(name string) (Input, error) {
		return nil, errors.New("busy")
	}

	dm.scan()
	evs := drain(dm)
	if len(evs) != 1 || evs[0].Type != DeviceFailed || evs[0].Err == nil {
		t.Fatalf("Expected failure event, got %+v", evs)
	}
	if in, _ := dm.Connected(); in != "" {
		t.Errorf("Expected no connected input, got %q", in)
	}
}

func TestDeviceManagerSkipsHungScan(t *testing.T) {
	dm := NewDeviceManager("a", "b")
	dm.list = func() ([]string, []string, error) {
		return nil, nil, ErrScanTimeout
	}
	dm.openIn = func(string) (Input, error) {
		t.Fatal("open called after failed scan")
		return nil, nil
	}
	dm.scan()
	if evs := drain(dm); len(evs) != 0 {
		t.Errorf("Expected no events, got %+v", evs)
	}
}

type watchedOutput struct {
	fakeOutput
	onClose func()
}

func (w *watchedOutput) Close() error {
	w.onClose()
	return w.fakeOutput.Close()
}

func TestDeviceManagerAnnouncesBeforeClose(t *testing.T) {
	ins := []string{}
	outs := []string{"Synth Out"}
	dm := newTestManager(&ins, &outs)

	queuedAtClose := -1
	dm.openOut = func(name string) (Output, error) {
		return &watchedOutput{
			fakeOutput: fakeOutput{id: name},
			onClose:    func() { queuedAtClose = len(dm.events) },
		}, nil
	}

	dm.scan()
	drain(dm)

	outs = nil
	dm.scan()
	if queuedAtClose != 1 {
		t.Errorf("Expected the disconnect event queued before Close, got %d queued", queuedAtClose)
	}
	evs := drain(dm)
	if len(evs) != 1 || evs[0].Type != DeviceDisconnected || evs[0].Dir != DirOut {
		t.Errorf("Expected output disconnect, got %+v", evs)
	}
}
