package midi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrClosed is returned when sending on a closed output
var ErrClosed = errors.New("port closed")

// Input is a source of MIDI events
type Input interface {
	ID() string
	Events() <-chan Event
	Close() error
}

// Output is a sink for MIDI events
type Output interface {
	ID() string
	Send(e Event) error
	Close() error
}

// PortInput listens to a hardware or virtual input port
type PortInput struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	events   chan Event
	dropped  atomic.Uint64

	// held for reading by the driver callback, for writing by Close
	mu     sync.RWMutex
	closed bool
}

// inputBuffer bounds how far the listener can run ahead of the router
const inputBuffer = 256

// NewPortInput opens an input port and starts listening.
// Offsets are the driver's millisecond timestamps.
func NewPortInput(id string, inPort drivers.In) (*PortInput, error) {
	pi := &PortInput{
		id:     id,
		inPort: inPort,
		events: make(chan Event, inputBuffer),
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			pi.deliver(FromMessage(msg, int64(timestampms)))
		})
		if err != nil {
			return nil, fmt.Errorf("open input %s: %w", id, err)
		}
		pi.stopFunc = stop
	}

	return pi, nil
}

func (pi *PortInput) ID() string {
	return pi.id
}

func (pi *PortInput) Events() <-chan Event {
	return pi.events
}

// Dropped returns how many messages were discarded because the buffer was full
func (pi *PortInput) Dropped() uint64 {
	return pi.dropped.Load()
}

// deliver queues one event from the driver thread. It never blocks, and
// events arriving after Close are discarded.
func (pi *PortInput) deliver(e Event) {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	if pi.closed {
		return
	}
	select {
	case pi.events <- e:
	default:
		pi.dropped.Add(1)
	}
}

func (pi *PortInput) Close() error {
	pi.mu.Lock()
	if pi.closed {
		pi.mu.Unlock()
		return nil
	}
	pi.closed = true
	stop := pi.stopFunc
	pi.stopFunc = nil
	close(pi.events)
	pi.mu.Unlock()

	// outside the lock: stopping may wait for a callback blocked in deliver
	if stop != nil {
		stop()
	}
	return nil
}

// PortOutput sends to an output port. Send and Close may be called from
// different goroutines.
type PortOutput struct {
	id   string
	port drivers.Out

	mu     sync.Mutex
	send   func(gomidi.Message) error
	closer func() error
}

// NewPortOutput opens an output port for sending
func NewPortOutput(id string, outPort drivers.Out) (*PortOutput, error) {
	send, err := gomidi.SendTo(outPort)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", id, err)
	}
	return &PortOutput{
		id:     id,
		port:   outPort,
		send:   send,
		closer: outPort.Close,
	}, nil
}

func (po *PortOutput) ID() string {
	return po.id
}

// SetCloser replaces what Close releases, for ports that own their driver
func (po *PortOutput) SetCloser(fn func() error) {
	po.mu.Lock()
	po.closer = fn
	po.mu.Unlock()
}

func (po *PortOutput) Send(e Event) error {
	msg := e.Message()
	if len(msg) == 0 {
		return nil
	}

	po.mu.Lock()
	defer po.mu.Unlock()
	if po.send == nil {
		return ErrClosed
	}
	return po.send(msg)
}

func (po *PortOutput) Close() error {
	po.mu.Lock()
	defer po.mu.Unlock()
	if po.send == nil {
		return nil
	}
	po.send = nil
	if po.closer != nil {
		return po.closer()
	}
	return nil
}
