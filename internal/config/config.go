// Package config loads and saves controller profiles as yaml. A
// profile is the host-side description of one controller setup:
// routing, setpoint, gains, clamps and the input filter cascade. It
// is plain data; Apply and Capture move it to and from hardware.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fpgakit/pidhost/internal/filter"
	"github.com/fpgakit/pidhost/internal/pid"
)

type Profile struct {
	Image               string    `yaml:"image"`
	Input               string    `yaml:"input"`
	OutputDirect        string    `yaml:"output_direct"`
	Setpoint            float64   `yaml:"setpoint"`
	P                   float64   `yaml:"p"`
	I                   float64   `yaml:"i"`
	D                   float64   `yaml:"d"`
	Ival                float64   `yaml:"ival"`
	MinVoltage          float64   `yaml:"min_voltage"`
	MaxVoltage          float64   `yaml:"max_voltage"`
	NormalizationOn     bool      `yaml:"normalization_on"`
	InputFilter         []float64 `yaml:"input_filter"`
	FrequencyCorrection float64   `yaml:"frequency_correction"`
}

// Default returns a neutral profile: unity proportional path, open
// clamps, no filtering.
func Default() *Profile {
	return &Profile{
		Image:               pid.DefaultImage.Revision,
		Input:               "in1",
		OutputDirect:        "off",
		P:                   1.0,
		MinVoltage:          -1.0,
		MaxVoltage:          0.999,
		FrequencyCorrection: 1.0,
	}
}

func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func Save(path string, p *Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Cascade builds the filter cascade described by the profile.
func (p *Profile) Cascade() (filter.Cascade, error) {
	return filter.NewCascade(p.InputFilter...)
}

// Apply writes the profile to the controller. The image revision is
// verified first; a mismatched profile never touches hardware.
func (p *Profile) Apply(c *pid.Controller) error {
	if err := c.VerifyImage(p.Image); err != nil {
		return err
	}
	cascade, err := p.Cascade()
	if err != nil {
		return err
	}

	if err := c.SetInput(p.Input); err != nil {
		return err
	}
	if err := c.SetOutputDirect(p.OutputDirect); err != nil {
		return err
	}
	if err := c.SetSetpoint(p.Setpoint); err != nil {
		return err
	}
	if err := c.SetP(p.P); err != nil {
		return err
	}
	if err := c.SetI(p.I); err != nil {
		return err
	}
	if err := c.SetD(p.D); err != nil {
		return err
	}
	if err := c.SetIval(p.Ival); err != nil {
		return err
	}
	if err := c.SetMinVoltage(p.MinVoltage); err != nil {
		return err
	}
	if err := c.SetMaxVoltage(p.MaxVoltage); err != nil {
		return err
	}
	if err := c.SetNormalizationOn(p.NormalizationOn); err != nil {
		return err
	}
	c.SetInputFilter(cascade)
	return nil
}

// Capture reads the current hardware state back into a profile. The
// frequency correction is host-side and recorded as nominal.
func Capture(c *pid.Controller) (*Profile, error) {
	p := &Profile{
		Image:               pid.DefaultImage.Revision,
		FrequencyCorrection: 1.0,
	}

	var err error
	if p.Input, err = c.Input(); err != nil {
		return nil, err
	}
	if p.OutputDirect, err = c.OutputDirect(); err != nil {
		return nil, err
	}
	if p.Setpoint, err = c.Setpoint(); err != nil {
		return nil, err
	}
	if p.P, err = c.P(); err != nil {
		return nil, err
	}
	if p.I, err = c.I(); err != nil {
		return nil, err
	}
	if p.D, err = c.D(); err != nil {
		return nil, err
	}
	if p.Ival, err = c.Ival(); err != nil {
		return nil, err
	}
	if p.MinVoltage, err = c.MinVoltage(); err != nil {
		return nil, err
	}
	if p.MaxVoltage, err = c.MaxVoltage(); err != nil {
		return nil, err
	}
	if p.NormalizationOn, err = c.NormalizationOn(); err != nil {
		return nil, err
	}
	cascade := c.InputFilter()
	last := -1
	for i, f := range cascade {
		if f != 0 {
			last = i
		}
	}
	p.InputFilter = append(p.InputFilter, cascade[:last+1]...)
	return p, nil
}
