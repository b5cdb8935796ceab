package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"pitch-velocity/engine"
	"pitch-velocity/midi"
	_ "pitch-velocity/midi/rtmidi"
	"pitch-velocity/velocity"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	defer midi.CloseDriver()

	switch os.Args[1] {
	case "list":
		listPorts()
	case "poll":
		pollDevices()
	case "monitor":
		if len(os.Args) < 3 {
			usage()
			return
		}
		monitor(os.Args[2])
	case "scale":
		if len(os.Args) < 3 {
			usage()
			return
		}
		playScale(os.Args[2])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List all MIDI ports")
	fmt.Println("  poll          - Poll for device changes")
	fmt.Println("  monitor <in>  - Print incoming events and their remapped velocity")
	fmt.Println("  scale <out>   - Play a chromatic scale at fixed velocity")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ports, err := midi.ListPorts(midi.ScanTimeout)
	if err != nil {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}

	for i, name := range ports.InNames() {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range ports.OutNames() {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a controller to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		ports, err := midi.ListPorts(midi.ScanTimeout)
		if err != nil {
			fmt.Printf("[%s] scan failed: %v\n", time.Now().Format("15:04:05"), err)
			time.Sleep(2 * time.Second)
			continue
		}
		inNames, outNames := ports.InNames(), ports.OutNames()

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}

// printer shows each routed event instead of sending it anywhere
type printer struct{}

func (printer) ID() string   { return "stdout" }
func (printer) Close() error { return nil }
func (printer) Send(e midi.Event) error {
	fmt.Printf("  -> %s\n", e)
	return nil
}

func monitor(name string) {
	ports, err := midi.ListPorts(midi.ScanTimeout)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	inPort, err := ports.FindIn(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	in, err := midi.NewPortInput(inPort.String(), inPort)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer in.Close()

	eng, err := engine.NewManager(velocity.DefaultParams(), 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	eng.SetOutput(printer{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		for e := range in.Events() {
			fmt.Printf("%s\n", e)
			eng.ProcessBlock([]midi.Event{e})
		}
	}()

	fmt.Printf("Monitoring %s with %s. Ctrl+C to exit.\n", inPort.String(), eng.Params())
	<-ctx.Done()

	s := eng.Stats()
	fmt.Printf("\nin:%d out:%d remapped:%d dropped:%d lost:%d\n", s.In, s.Out, s.Remapped, s.Dropped, in.Dropped())
}

func playScale(name string) {
	ports, err := midi.ListPorts(midi.ScanTimeout)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	outPort, err := ports.FindOut(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	out, err := midi.NewPortOutput(outPort.String(), outPort)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer out.Close()

	fmt.Printf("Playing C2-C6 at velocity 100 on %s...\n", outPort.String())
	for note := uint8(36); note <= 84; note++ {
		if err := out.Send(midi.NewNoteOn(1, note, 100, 0)); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		time.Sleep(120 * time.Millisecond)
		out.Send(midi.NewNoteOff(1, note, 0))
	}

	fmt.Println("Done!")
}
