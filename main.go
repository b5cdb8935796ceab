package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pitch-velocity",
	Short: "Remap MIDI note velocity from pitch",
	Long: `pitch-velocity rewrites the velocity of every note-on from its pitch:
low notes get the minimum velocity, high notes the maximum, and the
curve exponent shapes everything in between.

It runs live between two MIDI ports (or into a virtual port), or offline
over a Standard MIDI File.`,
	Version:      version,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Route a MIDI input to an output with the parameter editor",
	Long: `Open the configured input and output ports and remap note-on velocities
live. With a terminal attached the parameter editor is shown; otherwise
the router runs headless until interrupted.

Examples:
  pitch-velocity run --in "Keystation" --virtual "Pitch Velocity Out"
  pitch-velocity run --in keys --out synth --min 20 --max 110 --curve 2`,
	RunE: runRun,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI input and output ports",
	RunE:  runPorts,
}

var renderCmd = &cobra.Command{
	Use:   "render <in.mid> <out.mid>",
	Short: "Remap velocities in a Standard MIDI File",
	Long: `Apply the velocity curve to every track of a MIDI file. Timing, meta
events and non-note messages are kept.

Example:
  pitch-velocity render take.mid take-curved.mid --min 30 --curve 0.5`,
	Args: cobra.ExactArgs(2),
	RunE: runRender,
}

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the velocity for every note",
	RunE:  runCurve,
}

var (
	// port flags
	inPort      string
	outPort     string
	virtualName string

	// parameter flags
	minVelocity float64
	maxVelocity float64
	curve       float64
	bypass      bool

	// logging
	debugLog bool
	verbose  bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(curveCmd)

	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Write a debug log to ~/.config/pitch-velocity/debug.log")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Run command flags
	runCmd.Flags().StringVarP(&inPort, "in", "i", "", "Input port name (substring match)")
	runCmd.Flags().StringVarP(&outPort, "out", "o", "", "Output port name (substring match)")
	runCmd.Flags().StringVar(&virtualName, "virtual", "", "Create a virtual output port with this name")
	addParamFlags(runCmd)
	runCmd.Flags().BoolVar(&bypass, "bypass", false, "Start with routing bypassed")

	addParamFlags(renderCmd)
	addParamFlags(curveCmd)
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&minVelocity, "min", 0, "Minimum velocity, given to the lowest note (1-127)")
	cmd.Flags().Float64Var(&maxVelocity, "max", 0, "Maximum velocity, given to the highest note (1-127)")
	cmd.Flags().Float64Var(&curve, "curve", 0, "Curve exponent (0.1-10, 1 is linear)")
}
