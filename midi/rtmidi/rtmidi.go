// Package rtmidi registers the rtmidi driver with gomidi and opens virtual
// ports. It needs cgo; packages that only handle events import midi instead.
package rtmidi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // also registers the driver

	"pitch-velocity/midi"
)

// OpenVirtualOut creates a virtual output port other applications can read from
func OpenVirtualOut(name string) (*midi.PortOutput, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("create midi driver: %w", err)
	}

	out, err := drv.OpenVirtualOut(name)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("create virtual output %s: %w", name, err)
	}

	po, err := midi.NewPortOutput(name, out)
	if err != nil {
		out.Close()
		drv.Close()
		return nil, err
	}
	po.SetCloser(func() error {
		err := out.Close()
		drv.Close()
		return err
	})
	return po, nil
}
