// Package fxp converts between engineering-unit values and the
// two's-complement fixed-point words held in controller registers.
//
// A [Descriptor] captures everything the hardware knows about one
// register: its width, signedness, the normalization factor that maps
// engineering units (volts, Hz) onto integer counts, and whether the
// gate-level implementation negates the stored value.
package fxp

import (
	"fmt"
	"math"
)

// Descriptor is the codec configuration for one fixed-point register.
type Descriptor struct {
	Bits   uint    // register width in bits
	Signed bool    // two's complement when true
	Norm   float64 // counts per engineering unit
	Invert bool    // hardware stores the negated value
}

// RangeError reports a value that does not fit the declared bounds or
// the representable fixed-point range.
type RangeError struct {
	Name     string
	Value    float64
	Min, Max float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: value %g outside range [%g, %g]", e.Name, e.Value, e.Min, e.Max)
}

// MinCounts returns the smallest representable raw count.
func (d Descriptor) MinCounts() int64 {
	if !d.Signed {
		return 0
	}
	return -(int64(1) << (d.Bits - 1))
}

// MaxCounts returns the largest representable raw count.
func (d Descriptor) MaxCounts() int64 {
	if !d.Signed {
		return int64(1)<<d.Bits - 1
	}
	return int64(1)<<(d.Bits-1) - 1
}

// Min returns the smallest encodable engineering-unit value.
func (d Descriptor) Min() float64 {
	lo := float64(d.MinCounts()) / d.Norm
	hi := float64(d.MaxCounts()) / d.Norm
	if d.Invert {
		lo = -hi
	}
	return lo
}

// Max returns the largest encodable engineering-unit value.
func (d Descriptor) Max() float64 {
	lo := float64(d.MinCounts()) / d.Norm
	hi := float64(d.MaxCounts()) / d.Norm
	if d.Invert {
		hi = -lo
	}
	return hi
}

// Resolution returns the engineering-unit size of one LSB.
func (d Descriptor) Resolution() float64 {
	return 1 / d.Norm
}

func (d Descriptor) mask() int64 {
	return int64(1)<<d.Bits - 1
}

// Encode converts an engineering-unit value to the register word the
// bus carries. The value is negated first when the descriptor is
// inverted, scaled by the normalization factor and rounded to the
// nearest count. Counts that do not fit the declared width are
// rejected with a *RangeError, never wrapped.
func (d Descriptor) Encode(value float64) (int64, error) {
	v := value
	if d.Invert {
		v = -v
	}
	counts := int64(math.Round(v * d.Norm))
	if counts < d.MinCounts() || counts > d.MaxCounts() {
		return 0, &RangeError{
			Name:  fmt.Sprintf("fixed-point %d-bit encode", d.Bits),
			Value: value,
			Min:   d.Min(),
			Max:   d.Max(),
		}
	}
	return counts & d.mask(), nil
}

// Decode converts a register word back to engineering units. Signed
// descriptors sign-extend the word from its declared width first;
// the word is assumed to come from a register of that width, so bits
// above it are ignored. Decode(Encode(v)) recovers v to within one
// LSB for any v inside the descriptor range.
func (d Descriptor) Decode(word int64) float64 {
	counts := word & d.mask()
	if d.Signed && counts&(int64(1)<<(d.Bits-1)) != 0 {
		counts -= int64(1) << d.Bits
	}
	if d.Invert {
		counts = -counts
	}
	return float64(counts) / d.Norm
}
