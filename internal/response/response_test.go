package response_test

import (
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fpgakit/pidhost/internal/filter"
	"github.com/fpgakit/pidhost/internal/response"
)

var _ = Describe("TransferFunction", func() {
	Context("with a pure proportional gain", func() {
		m := response.Model{Gains: response.Gains{P: 1}}

		It("has unit magnitude at every frequency", func() {
			pts, err := m.TransferFunction([]float64{1, 10, 100})
			Expect(err).NotTo(HaveOccurred())
			for _, p := range pts {
				Expect(cmplx.Abs(p.H)).To(BeNumerically("~", 1, 1e-12))
				Expect(p.Singular).To(BeFalse())
			}
		})

		It("carries exactly the base pipeline delay in its phase", func() {
			delay := response.BaseDelayCycles * response.ClockPeriod
			pts, err := m.TransferFunction([]float64{1, 10, 100, 1e6})
			Expect(err).NotTo(HaveOccurred())
			for _, p := range pts {
				want := cmplx.Exp(complex(0, -2*math.Pi*p.Frequency*delay))
				Expect(cmplx.Abs(p.H - want)).To(BeNumerically("<", 1e-9))
			}
		})

		It("divides the delay by the frequency correction factor", func() {
			corrected := response.Model{
				Gains:               response.Gains{P: 1},
				FrequencyCorrection: 1.001,
			}
			delay := response.BaseDelayCycles * response.ClockPeriod / 1.001
			pts, err := corrected.TransferFunction([]float64{1e6})
			Expect(err).NotTo(HaveOccurred())
			want := cmplx.Exp(complex(0, -2*math.Pi*1e6*delay))
			Expect(cmplx.Abs(pts[0].H - want)).To(BeNumerically("<", 1e-9))
		})

		It("is finite at 0 Hz", func() {
			pts, err := m.TransferFunction([]float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(pts[0].Singular).To(BeFalse())
			Expect(pts[0].H).To(Equal(complex(1, 0)))
		})
	})

	Context("with an integral gain of 1000 Hz", func() {
		m := response.Model{Gains: response.Gains{I: 1000}}

		It("rolls off as i/f", func() {
			for _, f := range []float64{10, 100, 1000, 1e5} {
				pts, err := m.TransferFunction([]float64{f})
				Expect(err).NotTo(HaveOccurred())
				Expect(cmplx.Abs(pts[0].H)).To(BeNumerically("~", 1000/f, 1000/f*1e-9))
			}
		})

		It("flags 0 Hz as a singularity instead of returning NaN", func() {
			pts, err := m.TransferFunction([]float64{0, 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(pts[0].Singular).To(BeTrue())
			Expect(cmplx.IsInf(pts[0].H)).To(BeTrue())
			Expect(pts[1].Singular).To(BeFalse())
			Expect(cmplx.IsNaN(pts[1].H)).To(BeFalse())
			Expect(response.Singular(pts)).To(BeTrue())
		})

		It("approaches -90 degrees of phase well below the extra-cycle rolloff", func() {
			pts, err := m.TransferFunction([]float64{1})
			Expect(err).NotTo(HaveOccurred())
			phase := cmplx.Phase(pts[0].H) * 180 / math.Pi
			Expect(phase).To(BeNumerically("~", -90, 0.1))
		})
	})

	Context("with an input filter cascade", func() {
		It("multiplies the cascade attenuation into the response", func() {
			cascade, err := filter.NewCascade(1000)
			Expect(err).NotTo(HaveOccurred())
			m := response.Model{Gains: response.Gains{P: 1}, Filter: cascade}

			pts, err := m.TransferFunction([]float64{1000})
			Expect(err).NotTo(HaveOccurred())
			Expect(cmplx.Abs(pts[0].H)).To(BeNumerically("~", 1/math.Sqrt2, 1e-12))
		})

		It("adds the cascade cycles to the propagation delay", func() {
			cascade, err := filter.NewCascade(1e7) // corner far above the test frequency
			Expect(err).NotTo(HaveOccurred())
			m := response.Model{Gains: response.Gains{P: 1}, Filter: cascade}

			f := 1000.0
			pts, err := m.TransferFunction([]float64{f})
			Expect(err).NotTo(HaveOccurred())
			// 3 base + 2 lowpass cycles of delay phase, plus the
			// (tiny, but nonzero) filter phase at f << corner.
			delay := (response.BaseDelayCycles + filter.LowPassCycles) * response.ClockPeriod
			want := cmplx.Exp(complex(0, -2*math.Pi*f*delay)) / complex(1, f/1e7)
			Expect(cmplx.Abs(pts[0].H - want)).To(BeNumerically("<", 1e-9))
		})

		It("propagates a high-pass DC singularity", func() {
			cascade, err := filter.NewCascade(-1000)
			Expect(err).NotTo(HaveOccurred())
			m := response.Model{Gains: response.Gains{P: 1}, Filter: cascade}

			pts, err := m.TransferFunction([]float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(pts[0].Singular).To(BeTrue())
		})
	})

	Context("with a nonzero derivative gain", func() {
		It("refuses to model it", func() {
			m := response.Model{Gains: response.Gains{P: 1, D: 100}}
			_, err := m.TransferFunction([]float64{100})
			Expect(err).To(MatchError(response.ErrDerivativeNotModeled))
		})
	})

	Context("with external analog delay", func() {
		It("adds it to the pipeline delay", func() {
			m := response.Model{Gains: response.Gains{P: 1}, ExtraDelay: 200e-9}
			f := 1e6
			pts, err := m.TransferFunction([]float64{f})
			Expect(err).NotTo(HaveOccurred())
			delay := response.BaseDelayCycles*response.ClockPeriod + 200e-9
			want := cmplx.Exp(complex(0, -2*math.Pi*f*delay))
			Expect(cmplx.Abs(pts[0].H - want)).To(BeNumerically("<", 1e-9))
		})
	})
})

var _ = Describe("ComputeMargins", func() {
	It("finds the unity-gain crossover of an integrator", func() {
		m := response.Model{Gains: response.Gains{I: 1e5}}
		pts, err := m.TransferFunction(response.LogSpace(1e3, 1e7, 2001))
		Expect(err).NotTo(HaveOccurred())

		margins := response.ComputeMargins(pts)
		Expect(margins.HasCrossover).To(BeTrue())
		Expect(margins.CrossoverHz).To(BeNumerically("~", 1e5, 1e3))
		// Integrator phase is -90 deg; the four cycles of delay eat
		// about a degree at 100 kHz.
		Expect(margins.PhaseMarginDeg).To(BeNumerically("~", 89, 2))
	})

	It("reports no crossover for a weak proportional gain", func() {
		m := response.Model{Gains: response.Gains{P: 0.01}}
		pts, err := m.TransferFunction(response.LogSpace(1, 1e6, 200))
		Expect(err).NotTo(HaveOccurred())
		Expect(response.ComputeMargins(pts).HasCrossover).To(BeFalse())
	})
})

var _ = Describe("StepResponse", func() {
	const sampleRate = 1 / response.ClockPeriod

	It("settles a proportional loop at p/(1+p)", func() {
		m := response.Model{Gains: response.Gains{P: 0.5}}
		step, err := m.StepResponse(256, sampleRate)
		Expect(err).NotTo(HaveOccurred())
		Expect(step[255]).To(BeNumerically("~", 0.5/1.5, 0.02))
	})

	It("settles an integrating loop at unity", func() {
		m := response.Model{Gains: response.Gains{I: 1e6}}
		step, err := m.StepResponse(512, sampleRate)
		Expect(err).NotTo(HaveOccurred())
		Expect(step[511]).To(BeNumerically("~", 1, 0.05))
	})

	It("rejects a derivative model", func() {
		m := response.Model{Gains: response.Gains{D: 10}}
		_, err := m.StepResponse(64, sampleRate)
		Expect(err).To(MatchError(response.ErrDerivativeNotModeled))
	})
})

var _ = Describe("LogSpace", func() {
	It("spans the requested decade grid inclusively", func() {
		f := response.LogSpace(1, 1000, 4)
		Expect(f).To(HaveLen(4))
		Expect(f[0]).To(Equal(1.0))
		Expect(f[1]).To(BeNumerically("~", 10, 1e-9))
		Expect(f[2]).To(BeNumerically("~", 100, 1e-9))
		Expect(f[3]).To(Equal(1000.0))
	})
})
