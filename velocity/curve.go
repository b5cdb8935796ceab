package velocity

import "math"

// Velocity bounds for an emitted note-on. 0 would read as a note-off.
const (
	MinOutput = 1
	MaxOutput = 127
)

// Map computes a velocity from pitch: the note's position in 0..127 is raised
// to curve, then interpolated between minVelocity and maxVelocity and truncated.
// The result is not clamped; see Clamp.
func Map(note int, minVelocity, maxVelocity, curve float64) int {
	n := float64(note) / 127.0
	n = math.Pow(n, curve)
	return int(minVelocity + (maxVelocity-minVelocity)*n)
}

// Clamp limits a mapped velocity to [MinOutput, MaxOutput]
func Clamp(v int) int {
	if v < MinOutput {
		return MinOutput
	}
	if v > MaxOutput {
		return MaxOutput
	}
	return v
}

// Table returns the clamped velocity for every note, for display
func Table(p Params) [128]int {
	var t [128]int
	for note := range t {
		t[note] = Clamp(Map(note, p.MinVelocity, p.MaxVelocity, p.Curve))
	}
	return t
}
