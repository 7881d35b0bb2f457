package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/fpgakit/pidhost/internal/bus"
	"github.com/fpgakit/pidhost/internal/config"
	"github.com/fpgakit/pidhost/internal/export"
	"github.com/fpgakit/pidhost/internal/pid"
	"github.com/fpgakit/pidhost/internal/response"
	"github.com/fpgakit/pidhost/internal/tui"
)

var (
	configFile string
	fMin       float64
	fMax       float64
	points     int
	extraDelay float64
	stepCount  int
)

// main wires the CLI. Commands run against a simulated register file
// seeded from the profile; the physical transport to a real
// instrument is a separate concern plugged in behind the bus
// interface.
func main() {
	rootCmd := &cobra.Command{
		Use:   "pidhost",
		Short: "host-side model of an FPGA PID controller",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "controller profile (yaml)")
	rootCmd.PersistentFlags().Float64Var(&fMin, "fmin", 10, "lowest frequency [Hz]")
	rootCmd.PersistentFlags().Float64Var(&fMax, "fmax", 1e6, "highest frequency [Hz]")
	rootCmd.PersistentFlags().IntVar(&points, "points", 200, "frequency samples")
	rootCmd.PersistentFlags().Float64Var(&extraDelay, "extradelay", 0, "external analog delay [s]")

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "list the register map",
		RunE:  listParams,
	}

	getCmd := &cobra.Command{
		Use:   "get [name]",
		Short: "read one parameter",
		Args:  cobra.ExactArgs(1),
		RunE:  getParam,
	}

	setCmd := &cobra.Command{
		Use:   "set [name] [value]",
		Short: "write one parameter",
		Args:  cobra.ExactArgs(2),
		RunE:  setParam,
	}

	bodeCmd := &cobra.Command{
		Use:   "bode",
		Short: "plot the open-loop transfer function",
		RunE:  plotBode,
	}

	marginsCmd := &cobra.Command{
		Use:   "margins",
		Short: "print stability margins",
		RunE:  printMargins,
	}

	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "plot the predicted closed-loop step response",
		RunE:  plotStep,
	}
	stepCmd.Flags().IntVar(&stepCount, "samples", 512, "time samples")

	exportCmd := &cobra.Command{
		Use:   "export [file.svg]",
		Short: "write a Bode plot as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "interactive tuner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController()
			if err != nil {
				return err
			}
			return tui.Run(ctrl, response.LogSpace(fMin, fMax, points))
		},
	}

	rootCmd.AddCommand(paramsCmd, getCmd, setCmd, bodeCmd, marginsCmd, stepCmd, exportCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadProfile() (*config.Profile, error) {
	if configFile == "" {
		return config.Default(), nil
	}
	return config.Load(configFile)
}

func newController() (*pid.Controller, error) {
	profile, err := loadProfile()
	if err != nil {
		return nil, err
	}
	corr := profile.FrequencyCorrection
	ctrl := pid.New(bus.NewMemBus(),
		pid.WithFrequencyCorrection(func() float64 { return corr }))
	if err := profile.Apply(ctrl); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func listParams(cmd *cobra.Command, args []string) error {
	ctrl, err := newController()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDR\tBITS\tNORM\tINVERT\tRANGE\tUNIT")
	for _, p := range ctrl.Parameters() {
		fmt.Fprintf(w, "%s\t0x%X\t%d\t%g\t%v\t[%.4g, %.4g]\t%s\n",
			p.Name, p.Addr, p.Bits, p.Norm, p.Invert, p.Min, p.Max, p.Unit)
	}
	return w.Flush()
}

func getParam(cmd *cobra.Command, args []string) error {
	ctrl, err := newController()
	if err != nil {
		return err
	}
	v, err := ctrl.GetByName(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s = %g\n", args[0], v)
	return nil
}

func setParam(cmd *cobra.Command, args []string) error {
	ctrl, err := newController()
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("parse value: %w", err)
	}
	if err := ctrl.SetByName(args[0], v); err != nil {
		return err
	}
	got, err := ctrl.GetByName(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s = %g (quantized)\n", args[0], got)
	return nil
}

func computeResponse() ([]response.Point, error) {
	ctrl, err := newController()
	if err != nil {
		return nil, err
	}
	return ctrl.TransferFunction(response.LogSpace(fMin, fMax, points), extraDelay)
}

func plotBode(cmd *cobra.Command, args []string) error {
	pts, err := computeResponse()
	if err != nil {
		return err
	}

	allMags := response.MagnitudesDB(pts)
	allPhases := response.Phases(pts)
	mags := make([]float64, 0, len(pts))
	phases := make([]float64, 0, len(pts))
	for i := range pts {
		if pts[i].Singular {
			continue
		}
		mags = append(mags, allMags[i])
		phases = append(phases, allPhases[i]*180/math.Pi)
	}

	fmt.Println(asciigraph.Plot(mags,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("|H| [dB], %g Hz .. %g Hz (log axis)", fMin, fMax)),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(phases,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("phase [deg]"),
	))

	if response.Singular(pts) {
		fmt.Println("\nnote: singular samples (integrator or high-pass at 0 Hz) were skipped")
	}
	return nil
}

func printMargins(cmd *cobra.Command, args []string) error {
	pts, err := computeResponse()
	if err != nil {
		return err
	}
	m := response.ComputeMargins(pts)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if m.HasCrossover {
		fmt.Fprintf(w, "unity-gain crossover\t%.4g Hz\n", m.CrossoverHz)
		fmt.Fprintf(w, "phase margin\t%.1f deg\n", m.PhaseMarginDeg)
	} else {
		fmt.Fprintln(w, "unity-gain crossover\tnone in range")
	}
	if m.HasPhaseCrossover {
		fmt.Fprintf(w, "phase crossover\t%.4g Hz\n", m.PhaseCrossoverHz)
		fmt.Fprintf(w, "gain margin\t%.1f dB\n", m.GainMarginDB)
	}
	return w.Flush()
}

func plotStep(cmd *cobra.Command, args []string) error {
	ctrl, err := newController()
	if err != nil {
		return err
	}
	m, err := ctrl.Model(extraDelay)
	if err != nil {
		return err
	}
	step, err := m.StepResponse(stepCount, 1/response.ClockPeriod)
	if err != nil {
		return err
	}

	fmt.Println(asciigraph.Plot(step,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("closed-loop unit step, %d cycles of %g ns",
			stepCount, response.ClockPeriod*1e9)),
	))
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	pts, err := computeResponse()
	if err != nil {
		return err
	}
	svg := export.BodeToSVG(pts, 900, 600)
	if svg == "" {
		return fmt.Errorf("nothing finite to plot")
	}
	if err := os.WriteFile(args[0], []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}
