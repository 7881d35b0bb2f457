// Package register binds named controller parameters to bus addresses
// and fixed-point codecs. Every Get is exactly one bus read and every
// Set exactly one bus write (bool parameters additionally read before
// writing to preserve neighboring bits); there is no caching, so the
// hardware side effect is visible at each call site.
package register

import (
	"fmt"

	"github.com/fpgakit/pidhost/internal/bus"
	"github.com/fpgakit/pidhost/internal/fxp"
)

// Parameter is one engineering-unit register. Min and Max bound Set;
// Increment is the natural step for tooling (one LSB unless the
// hardware quantizes coarser).
type Parameter struct {
	Name      string
	Addr      uint32
	Codec     fxp.Descriptor
	Min       float64
	Max       float64
	Increment float64
	Unit      string

	bus bus.Bus
}

// New binds a parameter to a bus. Zero Min/Max default to the codec's
// representable range, zero Increment to one LSB.
func New(b bus.Bus, name string, addr uint32, codec fxp.Descriptor, unit string) *Parameter {
	return &Parameter{
		Name:      name,
		Addr:      addr,
		Codec:     codec,
		Min:       codec.Min(),
		Max:       codec.Max(),
		Increment: codec.Resolution(),
		Unit:      unit,
		bus:       b,
	}
}

// WithBounds overrides the settable range and step. Bounds may state
// a nominal range slightly wider than the codec (the accumulator is
// nominally ±4 V while its top count decodes to 4 V minus one LSB);
// Set still fails on encode for the sliver that does not fit.
func (p *Parameter) WithBounds(min, max, increment float64) *Parameter {
	p.Min, p.Max, p.Increment = min, max, increment
	return p
}

// Get reads and decodes the current register value.
func (p *Parameter) Get() (float64, error) {
	word, err := p.bus.Read(p.Addr)
	if err != nil {
		return 0, fmt.Errorf("read %s (0x%X): %w", p.Name, p.Addr, err)
	}
	return p.Codec.Decode(word), nil
}

// Set encodes and writes value. Values outside [Min, Max] are
// rejected with a *fxp.RangeError; nothing is clamped or written.
func (p *Parameter) Set(value float64) error {
	if value < p.Min || value > p.Max {
		return &fxp.RangeError{Name: p.Name, Value: value, Min: p.Min, Max: p.Max}
	}
	word, err := p.Codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.Name, err)
	}
	if err := p.bus.Write(p.Addr, word); err != nil {
		return fmt.Errorf("write %s (0x%X): %w", p.Name, p.Addr, err)
	}
	return nil
}

// BoolParameter is a single flag bit within a register word.
type BoolParameter struct {
	Name string
	Addr uint32
	Bit  uint

	bus bus.Bus
}

func NewBool(b bus.Bus, name string, addr uint32, bit uint) *BoolParameter {
	return &BoolParameter{Name: name, Addr: addr, Bit: bit, bus: b}
}

func (p *BoolParameter) Get() (bool, error) {
	word, err := p.bus.Read(p.Addr)
	if err != nil {
		return false, fmt.Errorf("read %s (0x%X): %w", p.Name, p.Addr, err)
	}
	return word&(1<<p.Bit) != 0, nil
}

// Set flips only the flag bit, read-modify-write.
func (p *BoolParameter) Set(on bool) error {
	word, err := p.bus.Read(p.Addr)
	if err != nil {
		return fmt.Errorf("read %s (0x%X): %w", p.Name, p.Addr, err)
	}
	if on {
		word |= 1 << p.Bit
	} else {
		word &^= 1 << p.Bit
	}
	if err := p.bus.Write(p.Addr, word); err != nil {
		return fmt.Errorf("write %s (0x%X): %w", p.Name, p.Addr, err)
	}
	return nil
}

// SelectParameter is a routing mux register: the word is an index
// into a fixed option list.
type SelectParameter struct {
	Name    string
	Addr    uint32
	Options []string

	bus bus.Bus
}

func NewSelect(b bus.Bus, name string, addr uint32, options []string) *SelectParameter {
	return &SelectParameter{Name: name, Addr: addr, Options: options, bus: b}
}

func (p *SelectParameter) Get() (string, error) {
	word, err := p.bus.Read(p.Addr)
	if err != nil {
		return "", fmt.Errorf("read %s (0x%X): %w", p.Name, p.Addr, err)
	}
	if word < 0 || word >= int64(len(p.Options)) {
		return "", fmt.Errorf("%s: register holds %d, outside the %d known options",
			p.Name, word, len(p.Options))
	}
	return p.Options[word], nil
}

func (p *SelectParameter) Set(option string) error {
	for i, o := range p.Options {
		if o == option {
			if err := p.bus.Write(p.Addr, int64(i)); err != nil {
				return fmt.Errorf("write %s (0x%X): %w", p.Name, p.Addr, err)
			}
			return nil
		}
	}
	return fmt.Errorf("%s: unknown option %q (have %v)", p.Name, option, p.Options)
}
