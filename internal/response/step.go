package response

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// StepResponse predicts the closed-loop unit-step response of the
// modeled controller around a unity-gain plant: T(f) = H(f)/(1+H(f)).
// The spectrum is sampled up to sampleRate/2, transformed back to the
// time domain and integrated; n samples spaced 1/sampleRate apart are
// returned.
//
// The DC bin of an integrating controller is singular in open loop
// but closes to exactly 1 (zero steady-state error), which is what
// the closed-loop form yields, so integrating models need no special
// casing here.
func (m Model) StepResponse(n int, sampleRate float64) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("step response needs a positive sample count, got %d", n)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("step response needs a positive sample rate, got %g", sampleRate)
	}

	nfft := nextPowerOf2(2 * n)
	freqs := make([]float64, nfft/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * sampleRate / float64(nfft)
	}

	pts, err := m.TransferFunction(freqs)
	if err != nil {
		return nil, err
	}

	spectrum := make([]complex128, nfft)
	for k, p := range pts {
		var t complex128
		if p.Singular {
			// Open-loop infinity closes to unity gain.
			t = 1
		} else {
			t = p.H / (1 + p.H)
		}
		spectrum[k] = t
		if k > 0 && k < nfft/2 {
			mirror := nfft - k
			spectrum[mirror] = complex(real(t), -imag(t))
		}
	}

	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, fmt.Errorf("step response: FFT plan: %w", err)
	}
	impulse := make([]complex128, nfft)
	if err := plan.Inverse(impulse, spectrum); err != nil {
		return nil, fmt.Errorf("step response: inverse FFT: %w", err)
	}

	step := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += real(impulse[i])
		step[i] = sum
	}
	return step, nil
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
