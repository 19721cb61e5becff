package trajopt

import (
	"context"
	"fmt"

	"github.com/edaniels/golog"
	"gonum.org/v1/gonum/floats"

	"github.com/DiitsGp/drake/mathprog"
	"github.com/DiitsGp/drake/multibody"
)

// MultipleShooting assembles a full direct-transcription trajectory problem
// over a multibody engine. It owns decision variables for every knot
// (configuration, velocity, control) and every interval (timestep, stacked
// constraint-force multipliers), builds one backward-Euler residual per
// interval at Compile time, and hands the assembled program to the solver.
//
// The engine is evaluated on dual scalars so the solver sees exact gradients.
// Construction allocates all variables; Compile freezes the transcription
// constraint set and runs exactly once. Additional costs and bounding boxes
// may be attached by the caller at any time before Solve.
type MultipleShooting struct {
	engine multibody.Engine[multibody.Dual]
	logger golog.Logger
	prog   *mathprog.Program

	numKnots                 int
	minTimestep, maxTimestep float64
	nq, nv, nu, nc           int

	positions  [][]mathprog.Variable
	velocities [][]mathprog.Variable
	controls   [][]mathprog.Variable
	timesteps  []mathprog.Variable
	// positionForces[i] are interval i's multipliers for the engine's
	// built-in position constraints; extraForces[i] are appended by
	// joint-limit (and future) evaluator registrations, in call order.
	positionForces [][]mathprog.Variable
	extraForces    [][]intervalForce

	compiled bool
}

type intervalForce struct {
	evaluator GeneralizedConstraintForceEvaluator[multibody.Dual]
	vars      []mathprog.Variable
}

// NewMultipleShooting allocates the decision variables for a trajectory with
// numKnots samples and per-interval timesteps bounded by
// [minTimestep, maxTimestep].
func NewMultipleShooting(
	engine multibody.Engine[multibody.Dual],
	numKnots int,
	minTimestep, maxTimestep float64,
	logger golog.Logger,
) (*MultipleShooting, error) {
	if numKnots < 2 {
		return nil, errTooFewKnots
	}
	if minTimestep <= 0 || minTimestep > maxTimestep {
		return nil, newTimestepBoundsError(minTimestep, maxTimestep)
	}

	ms := &MultipleShooting{
		engine:      engine,
		logger:      logger,
		prog:        mathprog.NewProgram(logger),
		numKnots:    numKnots,
		minTimestep: minTimestep,
		maxTimestep: maxTimestep,
		nq:          engine.NumPositions(),
		nv:          engine.NumVelocities(),
		nu:          engine.NumActuators(),
		nc:          engine.NumPositionConstraints(),
	}
	for k := 0; k < numKnots; k++ {
		ms.positions = append(ms.positions, ms.prog.NewVariables(ms.nq, fmt.Sprintf("q[%d]", k)))
		ms.velocities = append(ms.velocities, ms.prog.NewVariables(ms.nv, fmt.Sprintf("v[%d]", k)))
		ms.controls = append(ms.controls, ms.prog.NewVariables(ms.nu, fmt.Sprintf("u[%d]", k)))
	}
	for i := 0; i < numKnots-1; i++ {
		h := ms.prog.NewVariables(1, fmt.Sprintf("h[%d]", i))
		if err := ms.prog.AddBoundingBoxConstraint(minTimestep, maxTimestep, h...); err != nil {
			return nil, err
		}
		ms.timesteps = append(ms.timesteps, h[0])
		ms.positionForces = append(ms.positionForces, ms.prog.NewVariables(ms.nc, fmt.Sprintf("lambda[%d]", i)))
	}
	ms.extraForces = make([][]intervalForce, numKnots-1)
	return ms, nil
}

// NumKnots returns the number of sample times.
func (ms *MultipleShooting) NumKnots() int { return ms.numKnots }

// NumIntervals returns the number of timesteps, one fewer than the knots.
func (ms *MultipleShooting) NumIntervals() int { return ms.numKnots - 1 }

// Program exposes the underlying program for additional costs and
// constraints.
func (ms *MultipleShooting) Program() *mathprog.Program { return ms.prog }

// Positions returns knot k's configuration variables.
func (ms *MultipleShooting) Positions(k int) ([]mathprog.Variable, error) {
	if k < 0 || k >= ms.numKnots {
		return nil, newKnotIndexError(k, ms.numKnots)
	}
	return ms.positions[k], nil
}

// Velocities returns knot k's velocity variables.
func (ms *MultipleShooting) Velocities(k int) ([]mathprog.Variable, error) {
	if k < 0 || k >= ms.numKnots {
		return nil, newKnotIndexError(k, ms.numKnots)
	}
	return ms.velocities[k], nil
}

// Controls returns knot k's control variables.
func (ms *MultipleShooting) Controls(k int) ([]mathprog.Variable, error) {
	if k < 0 || k >= ms.numKnots {
		return nil, newKnotIndexError(k, ms.numKnots)
	}
	return ms.controls[k], nil
}

// Timestep returns interval i's timestep variable.
func (ms *MultipleShooting) Timestep(i int) (mathprog.Variable, error) {
	if i < 0 || i >= ms.NumIntervals() {
		return 0, newIntervalIndexError(i, ms.NumIntervals())
	}
	return ms.timesteps[i], nil
}

// PositionConstraintForces returns interval i's multipliers for the engine's
// built-in position constraints.
func (ms *MultipleShooting) PositionConstraintForces(i int) ([]mathprog.Variable, error) {
	if i < 0 || i >= ms.NumIntervals() {
		return nil, newIntervalIndexError(i, ms.NumIntervals())
	}
	return ms.positionForces[i], nil
}

// AddBoundingBoxConstraint passes a box through to the program.
func (ms *MultipleShooting) AddBoundingBoxConstraint(lb, ub float64, vars ...mathprog.Variable) error {
	return ms.prog.AddBoundingBoxConstraint(lb, ub, vars...)
}

// SetInitialGuess passes a solver seed through to the program.
func (ms *MultipleShooting) SetInitialGuess(vars []mathprog.Variable, values []float64) error {
	return ms.prog.SetInitialGuess(vars, values)
}

// AddJointLimitImplicitConstraint models contact with an artificial joint
// limit on one interval. It allocates a non-negative multiplier pair
// [λ_lower, λ_upper] for the limit forces, boxes the joint's position at the
// interval's right knot into [lower, upper], adds the complementary-slackness
// equalities tying each multiplier to its bound gap, and registers a force
// evaluator folding λ_lower − λ_upper into the interval's generalized force.
// The allocated pair is returned for seeding and solution extraction.
func (ms *MultipleShooting) AddJointLimitImplicitConstraint(
	interval, positionIndex, velocityIndex int,
	lower, upper float64,
) ([]mathprog.Variable, error) {
	if ms.compiled {
		return nil, errAlreadyCompiled
	}
	if interval < 0 || interval >= ms.NumIntervals() {
		return nil, newIntervalIndexError(interval, ms.NumIntervals())
	}
	if positionIndex < 0 || positionIndex >= ms.nq {
		return nil, newJointIndexError("position", positionIndex, ms.nq)
	}
	if !validJointLimits(lower, upper) {
		return nil, newJointLimitBoundsError(lower, upper)
	}
	evaluator, err := NewJointLimitForceEvaluator[multibody.Dual](velocityIndex, ms.nv)
	if err != nil {
		return nil, err
	}

	pair := ms.prog.NewVariables(2, fmt.Sprintf("jointLimitLambda[%d][%d]", interval, positionIndex))
	if err := ms.prog.AddBoundingBoxConstraint(0, maxLimitForce, pair...); err != nil {
		return nil, err
	}
	limitedJoint := ms.positions[interval+1][positionIndex]
	if err := ms.prog.AddBoundingBoxConstraint(lower, upper, limitedJoint); err != nil {
		return nil, err
	}
	comp := &jointLimitComplementarity{lower: lower, upper: upper}
	if err := ms.prog.AddConstraint(comp, []mathprog.Variable{limitedJoint, pair[0], pair[1]}); err != nil {
		return nil, err
	}
	ms.extraForces[interval] = append(ms.extraForces[interval], intervalForce{evaluator: evaluator, vars: pair})
	return pair, nil
}

// Compile builds one transcription constraint per interval, registers the
// base position-constraint force evaluator plus any joint-limit evaluators
// added for that interval, and binds each residual to its interval's variable
// slice. Must be called exactly once, after all evaluator registrations and
// before solving.
func (ms *MultipleShooting) Compile() error {
	if ms.compiled {
		return errAlreadyCompiled
	}
	for i := 0; i < ms.NumIntervals(); i++ {
		helper := NewKinematicsCacheWithVHelper(ms.engine)
		constraint, err := NewDirectTranscriptionConstraint(ms.engine, helper)
		if err != nil {
			return err
		}
		if err := constraint.AddGeneralizedConstraintForceEvaluator(
			NewPositionConstraintForceEvaluator(ms.engine),
		); err != nil {
			return err
		}
		vars := make([]mathprog.Variable, 0, constraint.NumInputs())
		vars = append(vars, ms.timesteps[i])
		vars = append(vars, ms.positions[i]...)
		vars = append(vars, ms.velocities[i]...)
		vars = append(vars, ms.positions[i+1]...)
		vars = append(vars, ms.velocities[i+1]...)
		vars = append(vars, ms.controls[i+1]...)
		vars = append(vars, ms.positionForces[i]...)
		for _, extra := range ms.extraForces[i] {
			if err := constraint.AddGeneralizedConstraintForceEvaluator(extra.evaluator); err != nil {
				return err
			}
			vars = append(vars, extra.vars...)
		}
		if err := ms.prog.AddConstraint(newTranscriptionBinding(constraint), vars); err != nil {
			return err
		}
	}
	ms.compiled = true
	ms.logger.Debugf("compiled %d transcription constraints", ms.NumIntervals())
	return nil
}

// AddRunningCost approximates ∫ g(u) dt with the backward rectangle rule
// Σᵢ hᵢ·g(u_{i+1}), matching the transcription's right-acting convention. The
// cost g is evaluated on each knot's control variables.
func (ms *MultipleShooting) AddRunningCost(g mathprog.Cost) error {
	for i := 0; i < ms.NumIntervals(); i++ {
		vars := make([]mathprog.Variable, 0, 1+ms.nu)
		vars = append(vars, ms.timesteps[i])
		vars = append(vars, ms.controls[i+1]...)
		if err := ms.prog.AddCost(&runningCost{inner: g}, vars); err != nil {
			return err
		}
	}
	return nil
}

// Solve delegates to the program's solver and returns its status. Compile
// must have run first.
func (ms *MultipleShooting) Solve(ctx context.Context) (mathprog.SolutionResult, error) {
	if !ms.compiled {
		return mathprog.SolutionResultFailure, errNotCompiled
	}
	return ms.prog.Solve(ctx)
}

// GetSolution extracts solved values for the given variables.
func (ms *MultipleShooting) GetSolution(vars ...mathprog.Variable) ([]float64, error) {
	return ms.prog.GetSolution(vars...)
}

// GetSampleTimes returns the knot times, the cumulative sums of the solved
// interval timesteps with the first knot at time zero.
func (ms *MultipleShooting) GetSampleTimes() ([]float64, error) {
	hs, err := ms.prog.GetSolution(ms.timesteps...)
	if err != nil {
		return nil, err
	}
	times := make([]float64, ms.numKnots)
	floats.CumSum(times[1:], hs)
	return times, nil
}

// maxLimitForce caps joint-limit multipliers; SLSQP needs finite boxes far
// looser than any physical contact force.
const maxLimitForce = 1e8

// runningCost weights an inner per-knot cost by the interval timestep: the
// bound variables are [h, u...] and the value is h·g(u).
type runningCost struct {
	inner mathprog.Cost
}

func (rc *runningCost) Eval(x, grad []float64) (float64, error) {
	h, u := x[0], x[1:]
	var innerGrad []float64
	if grad != nil {
		innerGrad = grad[1:]
	}
	val, err := rc.inner.Eval(u, innerGrad)
	if err != nil {
		return 0, err
	}
	if grad != nil {
		grad[0] = val
		for i := range innerGrad {
			innerGrad[i] *= h
		}
	}
	return h * val, nil
}
