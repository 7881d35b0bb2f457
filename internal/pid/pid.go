// Package pid assembles the host-side model of one FPGA PID module:
// the register map with its per-parameter fixed-point codecs, the
// input filter configuration, and the analytic transfer-function
// model fed from coherent gain snapshots.
package pid

import (
	"fmt"
	"math"

	"github.com/fpgakit/pidhost/internal/bus"
	"github.com/fpgakit/pidhost/internal/filter"
	"github.com/fpgakit/pidhost/internal/fxp"
	"github.com/fpgakit/pidhost/internal/register"
	"github.com/fpgakit/pidhost/internal/response"
)

// Register address map of the PID module.
const (
	AddrInput           = 0x000 // input mux of the signal block
	AddrOutputDirect    = 0x004 // direct output routing
	AddrIval            = 0x100 // integrator accumulator
	AddrSetpoint        = 0x104
	AddrP               = 0x108
	AddrI               = 0x10C
	AddrD               = 0x110 // shares the address with the normalization input offset
	AddrMinVoltage      = 0x124
	AddrMaxVoltage      = 0x128
	AddrNormalizationOn = 0x130
)

// Gain register geometry.
const (
	GainBits = 24
	PSR      = 12 // proportional shift
	ISR      = 32 // integral shift
	DSR      = 10 // derivative shift
)

// Routing options of the signal block muxes.
var (
	InputOptions        = []string{"in1", "in2", "out1", "out2"}
	OutputDirectOptions = []string{"off", "out1", "out2", "both"}
)

// Image identifies the deployed gate image revision and the codec
// assumptions tied to it. The accumulator width changed from 32 to 16
// bits in the 2016-07-16 image; decoding with the wrong width gives
// silently wrong volts, so the revision must be checked at bring-up.
type Image struct {
	Revision string
	IvalBits uint
}

// DefaultImage is the current production image.
var DefaultImage = Image{Revision: "2016-07-16", IvalBits: 16}

// ImageMismatchError reports a codec/image revision disagreement
// detected at bring-up.
type ImageMismatchError struct {
	Want Image
	Got  string
}

func (e *ImageMismatchError) Error() string {
	return fmt.Sprintf("hardware image %q does not match the %q register layout this model was built for",
		e.Got, e.Want.Revision)
}

// Controller is the host-side handle for one PID module. All state
// lives in hardware; the only host-side configuration is the input
// filter cascade and the clock correction source.
type Controller struct {
	bus   bus.Bus
	image Image

	// correction yields the dimensionless clock-frequency correction
	// factor, near 1. Nil means exactly nominal.
	correction func() float64

	ival     *register.Integrator
	setpoint *register.Parameter
	p        *register.Parameter
	i        *register.Parameter
	d        *register.Parameter
	minV     *register.Parameter
	maxV     *register.Parameter
	normOn   *register.BoolParameter
	normI    *register.Parameter
	normOff  *register.Parameter
	input    *register.SelectParameter
	output   *register.SelectParameter

	inputFilter filter.Cascade
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithImage overrides the expected gate image.
func WithImage(img Image) Option {
	return func(c *Controller) { c.image = img }
}

// WithFrequencyCorrection installs the clock drift correction source.
func WithFrequencyCorrection(fn func() float64) Option {
	return func(c *Controller) { c.correction = fn }
}

// New builds the register table for one PID module on the given bus.
func New(b bus.Bus, opts ...Option) *Controller {
	c := &Controller{bus: b, image: DefaultImage}
	for _, opt := range opts {
		opt(c)
	}

	volt := fxp.Descriptor{Bits: 14, Signed: true, Norm: 1 << 13}

	c.ival = register.NewIntegrator(
		register.New(b, "ival", AddrIval,
			fxp.Descriptor{Bits: c.image.IvalBits, Signed: true, Norm: 1 << 13}, "V").
			WithBounds(-4, 4, 8.0/(1<<16)))
	c.setpoint = register.New(b, "setpoint", AddrSetpoint, volt, "V")
	c.p = register.New(b, "p", AddrP,
		fxp.Descriptor{Bits: GainBits, Signed: true, Norm: 1 << PSR}, "")
	c.i = register.New(b, "i", AddrI,
		fxp.Descriptor{Bits: GainBits, Signed: true, Norm: math.Pow(2, ISR) * 2 * math.Pi * response.ClockPeriod}, "Hz")
	c.d = register.New(b, "d", AddrD,
		fxp.Descriptor{Bits: GainBits, Signed: true, Norm: math.Pow(2, DSR) / (2 * math.Pi * response.ClockPeriod), Invert: true}, "Hz")
	c.minV = register.New(b, "min_voltage", AddrMinVoltage, volt, "V")
	c.maxV = register.New(b, "max_voltage", AddrMaxVoltage, volt, "V")
	c.normOn = register.NewBool(b, "normalization_on", AddrNormalizationOn, 0)
	// The 1.5625 factor in the normalization crossover scaling is
	// empirical, measured against the deployed image.
	c.normI = register.New(b, "normalization_i", AddrI,
		fxp.Descriptor{Bits: GainBits, Signed: true,
			Norm: math.Pow(2, ISR) * 2 * math.Pi * response.ClockPeriod / (1 << 13) / 1.5625}, "Hz")
	c.normOff = register.New(b, "normalization_inputoffset", AddrD,
		fxp.Descriptor{Bits: 14 + DSR, Signed: true, Norm: 1 << (13 + DSR)}, "V")
	c.input = register.NewSelect(b, "input", AddrInput, InputOptions)
	c.output = register.NewSelect(b, "output_direct", AddrOutputDirect, OutputDirectOptions)
	return c
}

// VerifyImage asserts at bring-up that the reported gate image
// matches the register layout this model assumes. It must be called
// before trusting image-sensitive parameters (the accumulator);
// decoding against the wrong image cannot be detected afterwards.
func (c *Controller) VerifyImage(reported string) error {
	if reported != c.image.Revision {
		return &ImageMismatchError{Want: c.image, Got: reported}
	}
	return nil
}

func (c *Controller) correctionFactor() float64 {
	if c.correction == nil {
		return 1
	}
	return c.correction()
}

// Setpoint returns the control setpoint in volts.
func (c *Controller) Setpoint() (float64, error) { return c.setpoint.Get() }

// SetSetpoint writes the control setpoint in volts.
func (c *Controller) SetSetpoint(v float64) error { return c.setpoint.Set(v) }

// P returns the proportional gain (dimensionless).
func (c *Controller) P() (float64, error) { return c.p.Get() }

// SetP writes the proportional gain.
func (c *Controller) SetP(v float64) error { return c.p.Set(v) }

// I returns the integral unity-gain frequency in Hz.
func (c *Controller) I() (float64, error) { return c.i.Get() }

// SetI writes the integral unity-gain frequency in Hz.
func (c *Controller) SetI(v float64) error { return c.i.Set(v) }

// D returns the derivative unity-gain frequency in Hz; 0 means the
// branch is disabled. The register is live in hardware even though
// the analytic model refuses to include it.
func (c *Controller) D() (float64, error) { return c.d.Get() }

// SetD writes the derivative unity-gain frequency in Hz.
func (c *Controller) SetD(v float64) error { return c.d.Set(v) }

// Ival returns the live integrator sum in volts.
func (c *Controller) Ival() (float64, error) { return c.ival.Get() }

// SetIval overwrites the integrator sum, seeding or resetting the
// integration. This is a direct hardware write, not a gain change.
func (c *Controller) SetIval(v float64) error { return c.ival.Set(v) }

// ResetIntegrator zeroes the accumulator.
func (c *Controller) ResetIntegrator() error { return c.ival.Reset() }

// MinVoltage returns the lower output clamp in volts.
func (c *Controller) MinVoltage() (float64, error) { return c.minV.Get() }

// SetMinVoltage writes the lower output clamp.
func (c *Controller) SetMinVoltage(v float64) error { return c.minV.Set(v) }

// MaxVoltage returns the upper output clamp in volts.
func (c *Controller) MaxVoltage() (float64, error) { return c.maxV.Get() }

// SetMaxVoltage writes the upper output clamp.
func (c *Controller) SetMaxVoltage(v float64) error { return c.maxV.Set(v) }

// Input returns the selected input signal.
func (c *Controller) Input() (string, error) { return c.input.Get() }

// SetInput routes an input signal into the module.
func (c *Controller) SetInput(name string) error { return c.input.Set(name) }

// OutputDirect returns the direct output routing.
func (c *Controller) OutputDirect() (string, error) { return c.output.Get() }

// SetOutputDirect routes the module output.
func (c *Controller) SetOutputDirect(name string) error { return c.output.Set(name) }

// InputFilter returns the configured input filter cascade.
func (c *Controller) InputFilter() filter.Cascade { return c.inputFilter }

// SetInputFilter configures the input filter cascade used by the
// analytic model.
func (c *Controller) SetInputFilter(cascade filter.Cascade) { c.inputFilter = cascade }
