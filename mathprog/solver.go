package mathprog

import (
	"context"
	"math"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

const (
	defaultMaxEval        = 10000
	defaultConstraintTol  = 1e-8
	defaultFeasibilityTol = 1e-6
	defaultXtolRel        = 1e-10
)

// SolutionResult is the outcome of a Solve call.
type SolutionResult int

const (
	// SolutionResultUnsolved means Solve has not run yet.
	SolutionResultUnsolved SolutionResult = iota
	// SolutionResultFound means the solver converged to a feasible point.
	SolutionResultFound
	// SolutionResultInfeasible means the solver terminated at a point that
	// violates constraints beyond tolerance.
	SolutionResultInfeasible
	// SolutionResultFailure means the solver terminated abnormally.
	SolutionResultFailure
)

func (r SolutionResult) String() string {
	switch r {
	case SolutionResultFound:
		return "solution found"
	case SolutionResultInfeasible:
		return "infeasible point"
	case SolutionResultFailure:
		return "solver failure"
	default:
		return "unsolved"
	}
}

type optimizeReturn struct {
	solution []float64
	score    float64
	err      error
}

// SetMaxEvaluations overrides the solver's evaluation budget.
func (p *Program) SetMaxEvaluations(n int) {
	if n > 0 {
		p.maxEval = n
	}
}

// Solve hands the assembled program to NLopt's SLSQP and returns its status.
// A solver that terminates without a feasible point is not an error; callers
// must check the returned result before trusting GetSolution.
func (p *Program) Solve(ctx context.Context) (SolutionResult, error) {
	n := p.NumVariables()
	if n == 0 {
		return SolutionResultFailure, errEmptyBounds
	}

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(n))
	if err != nil {
		return SolutionResultFailure, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	err = multierr.Combine(
		opt.SetLowerBounds(p.lower),
		opt.SetUpperBounds(p.upper),
		opt.SetXtolRel(defaultXtolRel),
		opt.SetMaxEval(p.maxEval),
		opt.SetMinObjective(p.objectiveFunc(opt)),
	)
	if err != nil {
		return SolutionResultFailure, err
	}
	for i := range p.constraints {
		if err := p.attachConstraint(opt, &p.constraints[i]); err != nil {
			return SolutionResultFailure, err
		}
	}

	solveChan := make(chan *optimizeReturn, 1)
	utils.PanicCapturingGo(func() {
		x, score, optErr := opt.Optimize(p.startingPoint())
		solveChan <- &optimizeReturn{solution: x, score: score, err: optErr}
	})

	var solved *optimizeReturn
	select {
	case <-ctx.Done():
		err = multierr.Combine(ctx.Err(), opt.ForceStop())
		solved = <-solveChan
		if solved.solution != nil {
			p.solution = solved.solution
		}
		p.result = SolutionResultFailure
		return p.result, err
	case solved = <-solveChan:
	}

	if solved.solution != nil {
		p.solution = solved.solution
	}
	switch {
	case solved.err != nil:
		// This just *happens* sometimes on hard nonlinear problems; the
		// caller sees it as a status, not a process failure.
		p.logger.Debugw("nlopt terminated abnormally", "error", solved.err)
		p.result = SolutionResultFailure
	case !p.feasible(p.solution):
		p.result = SolutionResultInfeasible
	default:
		p.result = SolutionResultFound
	}
	p.logger.Debugw("solve finished", "result", p.result.String(), "objective", solved.score)
	return p.result, nil
}

// startingPoint builds the initial iterate from the guesses, clamped into the
// variable boxes; unseeded boxed variables start at their box midpoint.
func (p *Program) startingPoint() []float64 {
	x0 := make([]float64, p.NumVariables())
	for i := range x0 {
		switch {
		case p.guessSet[i]:
			x0[i] = p.guess[i]
		case !math.IsInf(p.lower[i], -1) && !math.IsInf(p.upper[i], 1):
			x0[i] = (p.lower[i] + p.upper[i]) / 2
		}
		x0[i] = math.Max(p.lower[i], math.Min(p.upper[i], x0[i]))
	}
	return x0
}

func (p *Program) objectiveFunc(opt *nlopt.NLopt) nlopt.Func {
	subX := make([][]float64, len(p.costs))
	subGrad := make([][]float64, len(p.costs))
	for i, bc := range p.costs {
		subX[i] = make([]float64, len(bc.vars))
		subGrad[i] = make([]float64, len(bc.vars))
	}
	return func(x, gradient []float64) float64 {
		for i := range gradient {
			gradient[i] = 0
		}
		total := 0.
		for i, bc := range p.costs {
			p.gather(x, bc.vars, subX[i])
			grad := subGrad[i]
			if len(gradient) == 0 {
				grad = nil
			}
			val, err := bc.cost.Eval(subX[i], grad)
			if err != nil {
				p.logger.Errorw("cost evaluation failed", "error", err)
				utils.UncheckedError(opt.ForceStop())
				return 0
			}
			total += val
			if grad != nil {
				for j, v := range bc.vars {
					gradient[v] += grad[j]
				}
			}
		}
		return total
	}
}

// attachConstraint registers one generic constraint with nlopt. Rows with
// equal bounds become an equality m-constraint on g−lb; the remaining finite
// bounds become inequality rows g−ub ≤ 0 and lb−g ≤ 0.
func (p *Program) attachConstraint(opt *nlopt.NLopt, bc *boundConstraint) error {
	n := p.NumVariables()
	m := bc.constraint.NumOutputs()
	lb, ub := bc.constraint.Bounds()

	type signedRow struct {
		row  int
		sign float64
	}
	var eqRows []int
	var ineqRows []signedRow
	for i := 0; i < m; i++ {
		if lb[i] == ub[i] {
			eqRows = append(eqRows, i)
			continue
		}
		if !math.IsInf(ub[i], 1) {
			ineqRows = append(ineqRows, signedRow{row: i, sign: 1})
		}
		if !math.IsInf(lb[i], -1) {
			ineqRows = append(ineqRows, signedRow{row: i, sign: -1})
		}
	}

	subX := make([]float64, len(bc.vars))
	out := make([]float64, m)
	jac := make([]float64, m*len(bc.vars))
	eval := func(x, gradient []float64) bool {
		p.gather(x, bc.vars, subX)
		var err error
		if len(gradient) > 0 {
			err = bc.constraint.EvalWithJacobian(subX, out, jac)
		} else {
			err = bc.constraint.Eval(subX, out)
		}
		if err != nil {
			p.logger.Errorw("constraint evaluation failed", "error", err)
			utils.UncheckedError(opt.ForceStop())
			return false
		}
		return true
	}

	if len(eqRows) > 0 {
		rows := eqRows
		mfunc := func(result, x, gradient []float64) {
			if !eval(x, gradient) {
				return
			}
			for i := range gradient {
				gradient[i] = 0
			}
			for k, row := range rows {
				result[k] = out[row] - lb[row]
				if len(gradient) > 0 {
					for j, v := range bc.vars {
						gradient[k*n+int(v)] = jac[row*len(bc.vars)+j]
					}
				}
			}
		}
		if err := opt.AddEqualityMConstraint(mfunc, p.tolSlice(len(rows))); err != nil {
			return err
		}
	}
	if len(ineqRows) > 0 {
		rows := ineqRows
		mfunc := func(result, x, gradient []float64) {
			if !eval(x, gradient) {
				return
			}
			for i := range gradient {
				gradient[i] = 0
			}
			for k, r := range rows {
				bound := ub[r.row]
				if r.sign < 0 {
					bound = lb[r.row]
				}
				result[k] = r.sign * (out[r.row] - bound)
				if len(gradient) > 0 {
					for j, v := range bc.vars {
						gradient[k*n+int(v)] = r.sign * jac[r.row*len(bc.vars)+j]
					}
				}
			}
		}
		if err := opt.AddInequalityMConstraint(mfunc, p.tolSlice(len(rows))); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) tolSlice(n int) []float64 {
	tol := make([]float64, n)
	for i := range tol {
		tol[i] = p.constraintTol
	}
	return tol
}

// feasible checks the candidate against all boxes and constraints within the
// program's feasibility tolerance.
func (p *Program) feasible(x []float64) bool {
	for i, xi := range x {
		if xi < p.lower[i]-p.feasibilityTol || xi > p.upper[i]+p.feasibilityTol {
			return false
		}
	}
	for _, bc := range p.constraints {
		subX := make([]float64, len(bc.vars))
		p.gather(x, bc.vars, subX)
		out := make([]float64, bc.constraint.NumOutputs())
		if err := bc.constraint.Eval(subX, out); err != nil {
			p.logger.Debugw("constraint evaluation failed during feasibility check", "error", err)
			return false
		}
		lb, ub := bc.constraint.Bounds()
		for i, v := range out {
			if v < lb[i]-p.feasibilityTol || v > ub[i]+p.feasibilityTol {
				return false
			}
		}
	}
	return true
}
