package pid

// Long-form accessor names kept for callers that predate the short
// register names. Thin delegates, no duplicated storage.

// Proportional is an alias for P.
func (c *Controller) Proportional() (float64, error) { return c.P() }

// SetProportional is an alias for SetP.
func (c *Controller) SetProportional(v float64) error { return c.SetP(v) }

// Integral is an alias for I.
func (c *Controller) Integral() (float64, error) { return c.I() }

// SetIntegral is an alias for SetI.
func (c *Controller) SetIntegral(v float64) error { return c.SetI(v) }

// Derivative is an alias for D.
func (c *Controller) Derivative() (float64, error) { return c.D() }

// SetDerivative is an alias for SetD.
func (c *Controller) SetDerivative(v float64) error { return c.SetD(v) }

// RegIntegral is an alias for Ival.
func (c *Controller) RegIntegral() (float64, error) { return c.Ival() }

// SetRegIntegral is an alias for SetIval.
func (c *Controller) SetRegIntegral(v float64) error { return c.SetIval(v) }
