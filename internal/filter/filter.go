// Package filter models the controller's input filter cascade in the
// frequency domain: up to four single-pole stages, each configured by
// one signed corner frequency in Hz.
//
// The sign convention follows the gate implementation: f > 0 is a
// low-pass pole at f, f < 0 a high-pass pole at |f|, and f == 0
// disables the slot entirely (a bypass, not a pole at 0 Hz). Each
// active stage also costs fixed pipeline cycles: two per low-pass,
// one per high-pass.
package filter

import (
	"fmt"
	"math/cmplx"
)

// MaxStages is the number of filter slots in the input pipeline.
const MaxStages = 4

// Pipeline cycles added per active stage.
const (
	LowPassCycles  = 2
	HighPassCycles = 1
)

// Cascade is the ordered slot configuration. A zero coefficient is
// the disable sentinel for its slot.
type Cascade [MaxStages]float64

// NewCascade builds a cascade from up to MaxStages coefficients;
// unspecified slots stay bypassed.
func NewCascade(coeffs ...float64) (Cascade, error) {
	var c Cascade
	if len(coeffs) > MaxStages {
		return c, fmt.Errorf("filter cascade has %d slots, got %d coefficients", MaxStages, len(coeffs))
	}
	copy(c[:], coeffs)
	return c, nil
}

// Active reports how many slots are not bypassed.
func (c Cascade) Active() int {
	n := 0
	for _, f := range c {
		if f != 0 {
			n++
		}
	}
	return n
}

// DelayCycles returns the extra pipeline delay of the configured
// cascade. It accumulates in slot order and is independent of the
// evaluation frequency.
func (c Cascade) DelayCycles() int {
	cycles := 0
	for _, f := range c {
		switch {
		case f > 0:
			cycles += LowPassCycles
		case f < 0:
			cycles += HighPassCycles
		}
	}
	return cycles
}

// Response evaluates the combined complex attenuation of the cascade
// at each frequency, together with the extra pipeline delay in
// cycles. singular marks samples where a high-pass stage was
// evaluated at 0 Hz; those gains are set to complex infinity rather
// than left as an unlabeled NaN.
func (c Cascade) Response(frequencies []float64) (gain []complex128, extraCycles int, singular []bool) {
	gain = make([]complex128, len(frequencies))
	singular = make([]bool, len(frequencies))
	for i := range gain {
		gain[i] = 1
	}

	for _, f := range c {
		switch {
		case f == 0:
			continue
		case f > 0: // lowpass
			for i, freq := range frequencies {
				gain[i] /= complex(1, freq/f)
			}
			extraCycles += LowPassCycles
		default: // highpass; f carries the minus sign already
			for i, freq := range frequencies {
				if freq == 0 {
					singular[i] = true
					gain[i] = cmplx.Inf()
					continue
				}
				gain[i] /= complex(1, f/freq)
			}
			extraCycles += HighPassCycles
		}
	}
	return gain, extraCycles, singular
}
