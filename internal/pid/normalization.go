package pid

// Normalizer mode: the module reuses the PID datapath to hold the
// input amplitude at a setpoint. The integral register doubles as the
// stabilization crossover frequency and the derivative register as
// the input offset, so these accessors alias the same addresses with
// different codecs.

// NormalizationOn reports whether the module runs as a normalizer.
func (c *Controller) NormalizationOn() (bool, error) { return c.normOn.Get() }

// SetNormalizationOn switches the module between PID and normalizer
// operation.
func (c *Controller) SetNormalizationOn(on bool) error { return c.normOn.Set(on) }

// NormalizationI returns the stabilization crossover frequency in Hz.
func (c *Controller) NormalizationI() (float64, error) { return c.normI.Get() }

// SetNormalizationI writes the stabilization crossover frequency.
func (c *Controller) SetNormalizationI(v float64) error { return c.normI.Set(v) }

// NormalizationGain returns the current normalization gain, held by
// the hardware in the proportional register at twice its value.
func (c *Controller) NormalizationGain() (float64, error) {
	p, err := c.p.Get()
	if err != nil {
		return 0, err
	}
	return p / 2, nil
}

// NormalizationInputOffset returns the normalizer input offset in
// volts.
func (c *Controller) NormalizationInputOffset() (float64, error) { return c.normOff.Get() }

// SetNormalizationInputOffset writes the normalizer input offset.
func (c *Controller) SetNormalizationInputOffset(v float64) error { return c.normOff.Set(v) }
