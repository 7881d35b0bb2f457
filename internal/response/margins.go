package response

import (
	"math"
	"math/cmplx"
)

// Margins summarizes the classical stability margins of an open-loop
// response, assuming unity feedback around the modeled controller.
type Margins struct {
	// CrossoverHz is the unity-gain frequency; PhaseMarginDeg is the
	// distance of the phase there from -180 degrees.
	CrossoverHz    float64
	PhaseMarginDeg float64

	// PhaseCrossoverHz is where the phase wraps through -180
	// degrees; GainMarginDB is how far below unity the magnitude
	// sits there.
	PhaseCrossoverHz float64
	GainMarginDB     float64

	HasCrossover      bool
	HasPhaseCrossover bool
}

// ComputeMargins scans a response sampled on an increasing frequency
// grid for the unity-gain and -180 degree crossings, interpolating
// between neighboring samples. Singular samples are skipped.
func ComputeMargins(pts []Point) Margins {
	var m Margins

	prevValid := false
	var prevF, prevMag, prevPhase float64

	for _, p := range pts {
		if p.Singular || p.Frequency <= 0 {
			prevValid = false
			continue
		}
		mag := cmplx.Abs(p.H)
		phase := cmplx.Phase(p.H) * 180 / math.Pi

		if prevValid {
			// Unity-gain crossing: |H| falls through 1.
			if !m.HasCrossover && (prevMag-1)*(mag-1) <= 0 && prevMag != mag {
				t := (1 - prevMag) / (mag - prevMag)
				m.CrossoverHz = prevF + t*(p.Frequency-prevF)
				ph := prevPhase + t*unwrapStep(prevPhase, phase)
				m.PhaseMarginDeg = 180 + ph
				m.HasCrossover = true
			}
			// Phase crossing through -180 (checked on the unwrapped
			// local step to ignore +-180 wraps).
			step := unwrapStep(prevPhase, phase)
			if !m.HasPhaseCrossover && (prevPhase+180)*(prevPhase+step+180) <= 0 && step != 0 {
				t := (-180 - prevPhase) / step
				m.PhaseCrossoverHz = prevF + t*(p.Frequency-prevF)
				magAt := prevMag + t*(mag-prevMag)
				if magAt > 0 {
					m.GainMarginDB = -20 * math.Log10(magAt)
					m.HasPhaseCrossover = true
				}
			}
		}

		prevF, prevMag, prevPhase = p.Frequency, mag, phase
		prevValid = true
	}
	return m
}

// unwrapStep returns the phase increment from a to b choosing the
// branch closest to zero.
func unwrapStep(a, b float64) float64 {
	d := b - a
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}
