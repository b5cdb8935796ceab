package velocity

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is returned by Validate
var ErrInvalidParams = errors.New("invalid velocity parameters")

// Parameter describes one host-facing control: range, step, skew and default.
// Skew follows the proportion^skew convention: values < 1 give the low end of
// the range more of the normalized travel.
type Parameter struct {
	ID      string
	Name    string
	Min     float64
	Max     float64
	Step    float64
	Skew    float64
	Default float64
}

// Parameter IDs, kept stable for saved configs
const (
	MinVelocityID = "minVel"
	MaxVelocityID = "maxVel"
	CurveID       = "curve"
	BypassID      = "bypass"
)

var (
	MinVelocityParam = Parameter{ID: MinVelocityID, Name: "Min Velocity", Min: 1, Max: 127, Step: 1, Skew: 1, Default: 10}
	MaxVelocityParam = Parameter{ID: MaxVelocityID, Name: "Max Velocity", Min: 1, Max: 127, Step: 1, Skew: 1, Default: 127}
	CurveParam       = Parameter{ID: CurveID, Name: "Curve", Min: 0.1, Max: 10, Step: 0.01, Skew: 0.5, Default: 1}
)

// Snap clamps v to the range and rounds it to the step grid
func (p Parameter) Snap(v float64) float64 {
	if math.IsNaN(v) {
		return p.Default
	}
	if p.Step > 0 {
		v = p.Min + p.Step*math.Round((v-p.Min)/p.Step)
	}
	return math.Max(p.Min, math.Min(p.Max, v))
}

// Normalize maps a plain value to 0-1, applying skew
func (p Parameter) Normalize(v float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	n := (v - p.Min) / (p.Max - p.Min)
	n = math.Max(0, math.Min(1, n))
	if p.Skew != 1 && p.Skew > 0 {
		n = math.Pow(n, p.Skew)
	}
	return n
}

// Denormalize maps 0-1 back to a plain value, undoing skew
func (p Parameter) Denormalize(n float64) float64 {
	n = math.Max(0, math.Min(1, n))
	if p.Skew != 1 && p.Skew > 0 && n > 0 {
		n = math.Exp(math.Log(n) / p.Skew)
	}
	return p.Min + (p.Max-p.Min)*n
}

// Contains reports whether v lies inside the range
func (p Parameter) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= p.Min && v <= p.Max
}

// Format renders a value at the step's precision
func (p Parameter) Format(v float64) string {
	if p.Step >= 1 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// Params is the snapshot the router reads for one block.
// MaxVelocity may be below MinVelocity; the curve then falls with pitch.
type Params struct {
	MinVelocity float64 `json:"minVelocity"`
	MaxVelocity float64 `json:"maxVelocity"`
	Curve       float64 `json:"curve"`
	Bypass      bool    `json:"bypass"`
}

// DefaultParams returns the factory settings
func DefaultParams() Params {
	return Params{
		MinVelocity: MinVelocityParam.Default,
		MaxVelocity: MaxVelocityParam.Default,
		Curve:       CurveParam.Default,
	}
}

// Validate rejects values outside the parameter ranges
func (p Params) Validate() error {
	if !MinVelocityParam.Contains(p.MinVelocity) {
		return fmt.Errorf("%w: min velocity %v outside [%v,%v]", ErrInvalidParams, p.MinVelocity, MinVelocityParam.Min, MinVelocityParam.Max)
	}
	if !MaxVelocityParam.Contains(p.MaxVelocity) {
		return fmt.Errorf("%w: max velocity %v outside [%v,%v]", ErrInvalidParams, p.MaxVelocity, MaxVelocityParam.Min, MaxVelocityParam.Max)
	}
	if !CurveParam.Contains(p.Curve) {
		return fmt.Errorf("%w: curve %v outside [%v,%v]", ErrInvalidParams, p.Curve, CurveParam.Min, CurveParam.Max)
	}
	return nil
}

// Sanitize snaps every field onto its parameter grid
func (p Params) Sanitize() Params {
	return Params{
		MinVelocity: MinVelocityParam.Snap(p.MinVelocity),
		MaxVelocity: MaxVelocityParam.Snap(p.MaxVelocity),
		Curve:       CurveParam.Snap(p.Curve),
		Bypass:      p.Bypass,
	}
}

func (p Params) String() string {
	return fmt.Sprintf("min=%s max=%s curve=%s bypass=%t",
		MinVelocityParam.Format(p.MinVelocity),
		MaxVelocityParam.Format(p.MaxVelocity),
		CurveParam.Format(p.Curve),
		p.Bypass)
}
