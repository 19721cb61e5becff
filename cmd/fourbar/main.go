// Command fourbar runs a swing-up trajectory optimization for a planar
// closed-loop four-link chain and plots the solved joint trajectory.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/edaniels/golog"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/DiitsGp/drake/mathprog"
	"github.com/DiitsGp/drake/multibody"
	"github.com/DiitsGp/drake/multibody/planarlink"
	"github.com/DiitsGp/drake/trajopt"
)

var (
	numKnots    int
	minTimestep float64
	maxTimestep float64
	finalAngle  float64
	controlCost float64
	maxEval     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fourbar",
		Short: "trajectory optimization for a planar closed-loop linkage",
		RunE:  runSwingUp,
	}
	rootCmd.Flags().IntVar(&numKnots, "knots", 5, "number of sample times")
	rootCmd.Flags().Float64Var(&minTimestep, "min-dt", 0.01, "minimum interval timestep")
	rootCmd.Flags().Float64Var(&maxTimestep, "max-dt", 0.1, "maximum interval timestep")
	rootCmd.Flags().Float64Var(&finalAngle, "final-angle", math.Pi/2, "first joint angle at the final knot")
	rootCmd.Flags().Float64Var(&controlCost, "control-cost", 1.0, "quadratic control effort weight")
	rootCmd.Flags().IntVar(&maxEval, "max-eval", 20000, "solver evaluation budget")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSwingUp(cmd *cobra.Command, args []string) error {
	logger := golog.NewDevelopmentLogger("fourbar")

	lengths := []float64{1, 1, 1, 1}
	masses := []float64{1, 1, 1, 1}
	pin := &planarlink.Pin{X: 1, Y: 1}
	chain, err := planarlink.NewChain[multibody.Dual](lengths, masses, 9.81, []int{0}, pin)
	if err != nil {
		return err
	}

	ms, err := trajopt.NewMultipleShooting(chain, numKnots, minTimestep, maxTimestep, logger)
	if err != nil {
		return err
	}

	q0, err := ms.Positions(0)
	if err != nil {
		return err
	}
	if err = ms.AddBoundingBoxConstraint(0, 0, q0[0]); err != nil {
		return err
	}
	qf, err := ms.Positions(numKnots - 1)
	if err != nil {
		return err
	}
	if err = ms.AddBoundingBoxConstraint(finalAngle, finalAngle, qf[0]); err != nil {
		return err
	}
	vf, err := ms.Velocities(numKnots - 1)
	if err != nil {
		return err
	}
	if err = ms.AddBoundingBoxConstraint(0, 0, vf...); err != nil {
		return err
	}
	if err = ms.AddRunningCost(&mathprog.SumSquaresCost{Weight: controlCost}); err != nil {
		return err
	}
	if err = seedClosedChain(ms, lengths, pin, finalAngle); err != nil {
		return err
	}
	if err = ms.Compile(); err != nil {
		return err
	}

	ms.Program().SetMaxEvaluations(maxEval)
	result, err := ms.Solve(cmd.Context())
	if err != nil {
		return err
	}
	if result != mathprog.SolutionResultFound {
		return fmt.Errorf("no feasible trajectory: %s", result)
	}

	times, err := ms.GetSampleTimes()
	if err != nil {
		return err
	}
	angles := make([]float64, numKnots)
	for k := 0; k < numKnots; k++ {
		qk, err := ms.Positions(k)
		if err != nil {
			return err
		}
		vals, err := ms.GetSolution(qk...)
		if err != nil {
			return err
		}
		angles[k] = vals[0]
		logger.Infof("t=%.3f q=%v", times[k], vals)
	}

	graph := asciigraph.Plot(angles,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption("first joint angle across knots"),
	)
	fmt.Println(graph)
	return nil
}

// seedClosedChain gives every knot a loop-closed configuration: the first
// joint interpolates toward the final angle, the second points straight up,
// and the last two links solve the remaining two-link reach to the pin.
func seedClosedChain(ms *trajopt.MultipleShooting, lengths []float64, pin *planarlink.Pin, finalAngle float64) error {
	for k := 0; k < numKnots; k++ {
		frac := float64(k) / float64(numKnots-1)
		q := closedChainPose(frac*finalAngle, lengths, pin)
		qk, err := ms.Positions(k)
		if err != nil {
			return err
		}
		if err := ms.SetInitialGuess(qk, q); err != nil {
			return err
		}
	}
	return nil
}

func closedChainPose(theta0 float64, lengths []float64, pin *planarlink.Pin) []float64 {
	theta1 := math.Pi / 2
	baseX := lengths[0]*math.Cos(theta0) + lengths[1]*math.Cos(theta1)
	baseY := lengths[0]*math.Sin(theta0) + lengths[1]*math.Sin(theta1)
	dx, dy := pin.X-baseX, pin.Y-baseY
	dist := math.Hypot(dx, dy)
	if dist < 1e-9 {
		// Folded pair when the first two links already reach the pin.
		return []float64{theta0, theta1, 0, math.Pi}
	}
	phi := math.Atan2(dy, dx)
	spread := math.Acos(math.Min(1, dist/(lengths[2]+lengths[3])))
	return []float64{theta0, theta1, phi + spread, phi - spread}
}
