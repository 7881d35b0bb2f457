package pid

import "github.com/fpgakit/pidhost/internal/register"

// ParamInfo describes one register-backed parameter for tooling.
type ParamInfo struct {
	Name   string
	Addr   uint32
	Bits   uint
	Norm   float64
	Invert bool
	Min    float64
	Max    float64
	Unit   string
}

func info(p *register.Parameter) ParamInfo {
	return ParamInfo{
		Name:   p.Name,
		Addr:   p.Addr,
		Bits:   p.Codec.Bits,
		Norm:   p.Codec.Norm,
		Invert: p.Codec.Invert,
		Min:    p.Min,
		Max:    p.Max,
		Unit:   p.Unit,
	}
}

// Parameters lists the module's register-backed parameters in
// address order.
func (c *Controller) Parameters() []ParamInfo {
	return []ParamInfo{
		info(c.ival.Parameter),
		info(c.setpoint),
		info(c.p),
		info(c.i),
		info(c.d),
		info(c.minV),
		info(c.maxV),
		info(c.normI),
		info(c.normOff),
	}
}

// GetByName reads one parameter by its register name. Routing muxes
// and the normalization flag are not included; they are not
// engineering-unit values.
func (c *Controller) GetByName(name string) (float64, error) {
	p, err := c.paramByName(name)
	if err != nil {
		return 0, err
	}
	return p.Get()
}

// SetByName writes one parameter by its register name.
func (c *Controller) SetByName(name string, value float64) error {
	p, err := c.paramByName(name)
	if err != nil {
		return err
	}
	return p.Set(value)
}

func (c *Controller) paramByName(name string) (*register.Parameter, error) {
	switch name {
	case "ival":
		return c.ival.Parameter, nil
	case "setpoint":
		return c.setpoint, nil
	case "p":
		return c.p, nil
	case "i":
		return c.i, nil
	case "d":
		return c.d, nil
	case "min_voltage":
		return c.minV, nil
	case "max_voltage":
		return c.maxV, nil
	case "normalization_i":
		return c.normI, nil
	case "normalization_inputoffset":
		return c.normOff, nil
	}
	return nil, &UnknownParameterError{Name: name}
}

// UnknownParameterError reports a parameter name outside the register
// map.
type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return "unknown parameter " + e.Name
}
