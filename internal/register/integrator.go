package register

// Integrator is the running integrator accumulator register. Unlike
// the gain registers it is mutated continuously by the hardware; Get
// returns the live sum in volts and Set overwrites it, which seeds or
// resets the integration rather than changing a gain.
//
// The accumulator codec (bit width, normalization) is a versioned
// contract with the deployed gate image: the register narrowed from
// 32 to 16 bits in the 2016-07-16 image, and decoding with the wrong
// width yields plausible but wrong voltages that software cannot
// detect on its own. Callers must verify the image revision at
// bring-up before trusting this parameter.
type Integrator struct {
	*Parameter
}

// NewIntegrator binds the accumulator register.
func NewIntegrator(p *Parameter) *Integrator {
	return &Integrator{Parameter: p}
}

// Reset zeroes the accumulated sum.
func (g *Integrator) Reset() error {
	return g.Set(0)
}
