package pid

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/fpgakit/pidhost/internal/bus"
	"github.com/fpgakit/pidhost/internal/filter"
	"github.com/fpgakit/pidhost/internal/fxp"
	"github.com/fpgakit/pidhost/internal/response"
)

func TestRegisterMapEncoding(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	// p = 1.0 lands in the 24-bit register as 2^PSR counts.
	if err := c.SetP(1.0); err != nil {
		t.Fatal(err)
	}
	word, _ := b.Read(AddrP)
	if word != 1<<PSR {
		t.Errorf("p register = %d, want %d", word, 1<<PSR)
	}

	// setpoint = -0.25 V in 14 bits, norm 2^13.
	if err := c.SetSetpoint(-0.25); err != nil {
		t.Fatal(err)
	}
	word, _ = b.Read(AddrSetpoint)
	if word != (int64(-2048))&0x3FFF {
		t.Errorf("setpoint register = %#x", word)
	}

	got, err := c.Setpoint()
	if err != nil {
		t.Fatal(err)
	}
	if got != -0.25 {
		t.Errorf("setpoint = %g, want -0.25", got)
	}
}

func TestDerivativeRegisterIsInverted(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	// The clock-derived norm makes the representable derivative
	// range tiny; stay inside it.
	const d = 1e-4
	if err := c.SetD(d); err != nil {
		t.Fatal(err)
	}
	word, _ := b.Read(AddrD)
	plain := fxp.Descriptor{Bits: GainBits, Signed: true,
		Norm: math.Pow(2, DSR) / (2 * math.Pi * response.ClockPeriod)}
	if stored := plain.Decode(word); stored >= 0 {
		t.Errorf("stored derivative value = %g, want negative (inverted register)", stored)
	}

	got, err := c.D()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-d) > 1e-9 {
		t.Errorf("d = %g, want %g within one LSB", got, d)
	}
}

func TestIntegralGainEmbedsClockPeriod(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	if err := c.SetI(1000); err != nil {
		t.Fatal(err)
	}
	word, _ := b.Read(AddrI)
	want := math.Round(1000 * math.Pow(2, ISR) * 2 * math.Pi * response.ClockPeriod)
	if float64(word) != want {
		t.Errorf("i register = %d, want %g", word, want)
	}
}

func TestAliasesDelegate(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	if err := c.SetProportional(2.5); err != nil {
		t.Fatal(err)
	}
	p, err := c.P()
	if err != nil {
		t.Fatal(err)
	}
	if p != 2.5 {
		t.Errorf("p = %g, want 2.5 via alias", p)
	}

	if err := c.SetRegIntegral(1.5); err != nil {
		t.Fatal(err)
	}
	ival, err := c.Ival()
	if err != nil {
		t.Fatal(err)
	}
	if ival != 1.5 {
		t.Errorf("ival = %g, want 1.5 via alias", ival)
	}
}

func TestVerifyImage(t *testing.T) {
	c := New(bus.NewMemBus())

	if err := c.VerifyImage(DefaultImage.Revision); err != nil {
		t.Errorf("matching revision rejected: %v", err)
	}

	err := c.VerifyImage("2015-02-01")
	var mismatch *ImageMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want ImageMismatchError, got %v", err)
	}
}

func TestLegacyImageWidth(t *testing.T) {
	b := bus.NewMemBus()
	legacy := New(b, WithImage(Image{Revision: "2015-02-01", IvalBits: 32}))

	// 1 volt in the 32-bit accumulator layout.
	if err := legacy.SetIval(1.0); err != nil {
		t.Fatal(err)
	}
	word, _ := b.Read(AddrIval)
	if word != 1<<13 {
		t.Errorf("word = %d, want %d", word, 1<<13)
	}

	// A negative volt written by the current 16-bit layout decodes
	// as a large positive voltage under the 32-bit layout: the sign
	// bit moved. This is exactly the silent corruption VerifyImage
	// exists to rule out.
	current := New(b)
	if err := current.SetIval(-1.0); err != nil {
		t.Fatal(err)
	}
	got, err := legacy.Ival()
	if err != nil {
		t.Fatal(err)
	}
	if got != 7.0 {
		t.Errorf("32-bit decode of a 16-bit -1 V = %g, want the wrong-but-plausible 7", got)
	}
}

func TestSnapshotGainsIsAtomic(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	pCodec := c.p.Codec
	iCodec := c.i.Codec

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The writer keeps p and i numerically locked together; a
		// torn snapshot would decode values from two different
		// update instants.
		for k := 1; k <= 5000; k++ {
			pw, _ := pCodec.Encode(float64(k%100) + 1)
			iw, _ := iCodec.Encode((float64(k%100) + 1) * 10)
			b.Apply(func(regs map[uint32]int64) {
				regs[AddrP] = pw
				regs[AddrI] = iw
			})
		}
	}()

	for n := 0; n < 500; n++ {
		g, err := c.SnapshotGains()
		if err != nil {
			t.Fatal(err)
		}
		if g.P == 0 && g.I == 0 {
			continue // writer not started yet
		}
		if math.Abs(g.I-10*g.P) > 0.05 {
			t.Fatalf("torn snapshot: p=%g i=%g", g.P, g.I)
		}
	}
	<-done
}

func TestTransferFunctionFromHardwareState(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	if err := c.SetP(1.0); err != nil {
		t.Fatal(err)
	}
	cascade, err := filter.NewCascade(1000)
	if err != nil {
		t.Fatal(err)
	}
	c.SetInputFilter(cascade)

	pts, err := c.TransferFunction([]float64{1000}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if mag := cmplx.Abs(pts[0].H); math.Abs(mag-1/math.Sqrt2) > 1e-9 {
		t.Errorf("|H| at the filter corner = %g, want 1/sqrt(2)", mag)
	}
}

func TestTransferFunctionReportsDerivative(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	if err := c.SetD(2e-4); err != nil {
		t.Fatal(err)
	}
	_, err := c.TransferFunction([]float64{100}, 0)
	if !errors.Is(err, response.ErrDerivativeNotModeled) {
		t.Errorf("nonzero derivative gain must be reported, got %v", err)
	}
}

func TestFrequencyCorrectionSource(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b, WithFrequencyCorrection(func() float64 { return 1.0005 }))

	if err := c.SetP(1.0); err != nil {
		t.Fatal(err)
	}
	m, err := c.Model(0)
	if err != nil {
		t.Fatal(err)
	}
	if m.FrequencyCorrection != 1.0005 {
		t.Errorf("correction = %g, want 1.0005", m.FrequencyCorrection)
	}
}

func TestParameterListingAndNames(t *testing.T) {
	c := New(bus.NewMemBus())

	params := c.Parameters()
	if len(params) != 9 {
		t.Fatalf("parameter count = %d, want 9", len(params))
	}
	if params[0].Name != "ival" || params[0].Addr != AddrIval {
		t.Errorf("first parameter = %+v, want ival at 0x100", params[0])
	}

	if err := c.SetByName("max_voltage", 0.75); err != nil {
		t.Fatal(err)
	}
	got, err := c.GetByName("max_voltage")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.75 {
		t.Errorf("max_voltage = %g, want 0.75", got)
	}

	var unknown *UnknownParameterError
	if _, err := c.GetByName("bogus"); !errors.As(err, &unknown) {
		t.Errorf("want UnknownParameterError, got %v", err)
	}
}

func TestRoutingMuxes(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	if err := c.SetInput("in2"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetOutputDirect("out1"); err != nil {
		t.Fatal(err)
	}
	in, err := c.Input()
	if err != nil {
		t.Fatal(err)
	}
	if in != "in2" {
		t.Errorf("input = %q, want in2", in)
	}
	out, err := c.OutputDirect()
	if err != nil {
		t.Fatal(err)
	}
	if out != "out1" {
		t.Errorf("output = %q, want out1", out)
	}
}

func TestNormalizationAccessors(t *testing.T) {
	b := bus.NewMemBus()
	c := New(b)

	if err := c.SetNormalizationOn(true); err != nil {
		t.Fatal(err)
	}
	on, err := c.NormalizationOn()
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("normalization flag should be set")
	}

	if err := c.SetP(3.0); err != nil {
		t.Fatal(err)
	}
	gain, err := c.NormalizationGain()
	if err != nil {
		t.Fatal(err)
	}
	if gain != 1.5 {
		t.Errorf("normalization gain = %g, want p/2 = 1.5", gain)
	}
}
