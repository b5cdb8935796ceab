package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pitch-velocity/config"
	"pitch-velocity/debug"
	"pitch-velocity/engine"
	"pitch-velocity/midi"
	"pitch-velocity/midi/rtmidi"
	"pitch-velocity/render"
	"pitch-velocity/theme"
	"pitch-velocity/tui"
	"pitch-velocity/velocity"
)

// applyParamFlags overrides p with the parameter flags the user set
func applyParamFlags(cmd *cobra.Command, p velocity.Params) (velocity.Params, error) {
	flags := cmd.Flags()
	if flags.Changed("min") {
		p.MinVelocity = minVelocity
	}
	if flags.Changed("max") {
		p.MaxVelocity = maxVelocity
	}
	if flags.Changed("curve") {
		p.Curve = curve
	}
	if flags.Lookup("bypass") != nil && flags.Changed("bypass") {
		p.Bypass = bypass
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	cfg.Params, err = applyParamFlags(cmd, cfg.Params)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Lookup("in") != nil && flags.Changed("in") {
		cfg.Ports.Input = inPort
	}
	if flags.Lookup("out") != nil && flags.Changed("out") {
		cfg.Ports.Output = outPort
	}
	if flags.Lookup("virtual") != nil && flags.Changed("virtual") {
		cfg.Ports.VirtualName = virtualName
	}
	if debugLog {
		cfg.Debug = true
	}
	return cfg, nil
}

func startDebug(logger *log.Logger, on bool) func() {
	if !on {
		return func() {}
	}
	if err := debug.Enable(); err != nil {
		logger.Warn("debug log disabled", "err", err)
		return func() {}
	}
	logger.Debug("debug log", "path", debug.DefaultPath())
	return debug.Disable
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := debug.NewCLILogger(os.Stderr, verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	defer startDebug(logger, cfg.Debug)()
	defer midi.CloseDriver()

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		logger.Warn("using built-in palette", "err", err)
	}

	eng, err := engine.NewManager(cfg.Params, cfg.UI.RecentEvents)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// a named output port wins over the virtual port
	if cfg.Ports.Output == "" {
		vout, err := rtmidi.OpenVirtualOut(cfg.Ports.VirtualName)
		if err != nil {
			return err
		}
		defer vout.Close()
		eng.SetOutput(vout)
		logger.Info("virtual output ready", "name", cfg.Ports.VirtualName)
	}

	deviceMgr := midi.NewDeviceManager(cfg.Ports.Input, cfg.Ports.Output)
	go deviceMgr.Run(ctx)

	go func() {
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("engine stopped", "err", err)
		}
	}()

	logger.Info("routing", "in", cfg.Ports.Input, "out", cfg.Ports.Output, "params", cfg.Params.String())

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return runHeadless(ctx, logger, eng, deviceMgr)
	}

	m := tui.NewModel(eng, deviceMgr, theme.New(palette), cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
}

// runHeadless wires hot-plug events straight into the engine until ctx ends
func runHeadless(ctx context.Context, logger *log.Logger, eng *engine.Manager, deviceMgr *midi.DeviceManager) error {
	for {
		select {
		case <-ctx.Done():
			s := eng.Stats()
			logger.Info("stopped", "in", s.In, "out", s.Out, "remapped", s.Remapped, "dropped", s.Dropped)
			return nil
		case ev, ok := <-deviceMgr.Events():
			if !ok {
				return nil
			}
			switch ev.Type {
			case midi.DeviceConnected:
				if ev.Dir == midi.DirIn {
					eng.Attach(ev.Input)
				} else {
					eng.SetOutput(ev.Output)
				}
				logger.Info("connected", "dir", ev.Dir, "port", ev.Name)
			case midi.DeviceDisconnected:
				if ev.Dir == midi.DirOut {
					if out := eng.Output(); out != nil && out.ID() == ev.Name {
						eng.SetOutput(nil)
					}
				}
				logger.Warn("disconnected", "dir", ev.Dir, "port", ev.Name)
			case midi.DeviceFailed:
				logger.Error("open failed", "dir", ev.Dir, "port", ev.Name, "err", ev.Err)
			}
		}
	}
}

func runPorts(cmd *cobra.Command, args []string) error {
	defer midi.CloseDriver()

	ports, err := midi.ListPorts(midi.ScanTimeout)
	if err != nil {
		if errors.Is(err, midi.ErrScanTimeout) {
			return fmt.Errorf("%w (try: sudo killall coreaudiod midiserver)", err)
		}
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Inputs:")
	for i, name := range ports.InNames() {
		fmt.Fprintf(w, "  %d: %s\n", i, name)
	}
	fmt.Fprintln(w, "Outputs:")
	for i, name := range ports.OutNames() {
		fmt.Fprintf(w, "  %d: %s\n", i, name)
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	logger := debug.NewCLILogger(os.Stderr, verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer startDebug(logger, cfg.Debug)()

	// rendering a file always applies the curve
	p := cfg.Params
	p.Bypass = false

	stats, err := render.File(args[0], args[1], p)
	if err != nil {
		return err
	}
	logger.Info("rendered", "out", args[1], "tracks", stats.Tracks, "events", stats.Events, "remapped", stats.Remapped, "dropped", stats.Dropped)
	return nil
}

func runCurve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printCurve(cmd, cfg.Params)
	return nil
}

// printCurve writes four columns of note/velocity pairs
func printCurve(cmd *cobra.Command, p velocity.Params) {
	w := cmd.OutOrStdout()
	table := velocity.Table(p)
	fmt.Fprintf(w, "%s\n\n", p)

	const cols = 4
	rows := len(table) / cols
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			note := c*rows + r
			fmt.Fprintf(w, "%3d %-4s %3d    ", note, midi.NoteName(uint8(note)), table[note])
		}
		fmt.Fprintln(w)
	}
}
