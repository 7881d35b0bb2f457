// Package response is the analytic frequency-domain model of the
// controller. Given a snapshot of the gain registers and the input
// filter configuration it predicts the open-loop complex transfer
// function without touching hardware, including the cycle-accurate
// propagation delay of the pipeline.
package response

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/fpgakit/pidhost/internal/filter"
)

const (
	// ClockPeriod is the nominal FPGA clock period in seconds.
	ClockPeriod = 8e-9

	// BaseDelayCycles is the minimum input-to-output propagation of
	// the module. The gate netlist suggests 4 cycles when both
	// integral and derivative branches are active, but the
	// derivative path is not modeled here so the 3-cycle figure
	// stands.
	BaseDelayCycles = 3
)

// ErrDerivativeNotModeled is returned when a model is asked to
// include a nonzero derivative gain. The hardware register exists but
// the branch is dormant in the gate image, and its delay interaction
// is unresolved; refusing beats silently dropping the term.
var ErrDerivativeNotModeled = errors.New("derivative branch is not modeled")

// Gains is a coherent snapshot of the gain registers. P is
// dimensionless, I and D are unity-gain frequencies in Hz. The
// snapshot must be captured atomically (or in one documented read
// sequence) before modeling; see pid.Controller.SnapshotGains.
type Gains struct {
	P float64
	I float64
	D float64
}

// Point is one frequency-response sample. Singular marks frequencies
// where the model diverges (integrator or high-pass stage evaluated
// at 0 Hz); H is complex infinity there, never an unlabeled NaN.
type Point struct {
	Frequency float64
	H         complex128
	Singular  bool
}

// Model is the stateless synthesizer configuration.
type Model struct {
	Gains  Gains
	Filter filter.Cascade

	// FrequencyCorrection compensates the real oscillator's drift
	// from its nominal rate; dimensionless, near 1. Zero means
	// exactly nominal.
	FrequencyCorrection float64

	// ExtraDelay is analog/external delay in seconds added on top of
	// the pipeline propagation (about 200 ns when routed through the
	// analog frontend).
	ExtraDelay float64
}

func (m Model) correction() float64 {
	if m.FrequencyCorrection == 0 {
		return 1
	}
	return m.FrequencyCorrection
}

// TransferFunction evaluates the open-loop response at each
// frequency. The proportional and integral branches are summed, the
// integral branch carrying one clock cycle of extra phase; the filter
// cascade multiplies in and contributes its pipeline cycles; finally
// the total propagation delay rotates the whole result.
//
// A zero frequency with nonzero integral gain, or with an active
// high-pass stage, yields a Point flagged Singular. A nonzero
// derivative gain fails with ErrDerivativeNotModeled.
func (m Model) TransferFunction(frequencies []float64) ([]Point, error) {
	if m.Gains.D != 0 {
		return nil, ErrDerivativeNotModeled
	}

	c := m.correction()
	points := make([]Point, len(frequencies))

	fgain, extraCycles, fsingular := m.Filter.Response(frequencies)
	delay := float64(BaseDelayCycles+extraCycles)*ClockPeriod/c + m.ExtraDelay

	for i, f := range frequencies {
		points[i].Frequency = f

		if fsingular[i] || (f == 0 && m.Gains.I != 0) {
			points[i].H = cmplx.Inf()
			points[i].Singular = true
			continue
		}

		var tf complex128
		if m.Gains.I != 0 {
			// Integrator with one cycle of extra delay folded in.
			w := 2 * math.Pi * f
			tf = complex(m.Gains.I, 0) / complex(0, f) *
				cmplx.Exp(complex(0, -w*ClockPeriod*c))
		}
		tf += complex(m.Gains.P, 0)
		tf *= fgain[i]
		tf *= cmplx.Exp(complex(0, -2*math.Pi*f*delay))
		points[i].H = tf
	}
	return points, nil
}

// Singular reports whether any sample in pts diverged.
func Singular(pts []Point) bool {
	for _, p := range pts {
		if p.Singular {
			return true
		}
	}
	return false
}

// Magnitudes extracts |H| per sample; singular samples are +Inf.
func Magnitudes(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = cmplx.Abs(p.H)
	}
	return out
}

// MagnitudesDB extracts 20*log10|H| per sample.
func MagnitudesDB(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = 20 * math.Log10(cmplx.Abs(p.H))
	}
	return out
}

// Phases extracts the phase in radians per sample.
func Phases(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = cmplx.Phase(p.H)
	}
	return out
}

// LogSpace returns n logarithmically spaced frequencies spanning
// [start, stop] inclusive.
func LogSpace(start, stop float64, n int) []float64 {
	if n < 2 {
		return []float64{start}
	}
	out := make([]float64, n)
	ratio := math.Log(stop / start)
	for i := range out {
		out[i] = start * math.Exp(ratio*float64(i)/float64(n-1))
	}
	out[n-1] = stop
	return out
}
