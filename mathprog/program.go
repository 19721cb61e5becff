// Package mathprog is a small nonlinear-program container: it owns decision
// variables, bounding boxes, differentiable constraints and costs, and solves
// the assembled program with NLopt's SLSQP. Callers build the program up
// front, call Solve once, and read values back through GetSolution.
package mathprog

import (
	"math"

	"github.com/edaniels/golog"
)

// Variable is an index into a Program's decision-variable vector.
type Variable int

// Constraint is a differentiable vector-valued constraint lb ≤ g(x) ≤ ub over
// a subset of the program's variables.
type Constraint interface {
	// NumOutputs returns the output dimension of g.
	NumOutputs() int
	// Bounds returns the per-output lower and upper bounds. Equal bounds
	// make the output an equality.
	Bounds() (lb, ub []float64)
	// Eval writes g(x) into out.
	Eval(x, out []float64) error
	// EvalWithJacobian writes g(x) into out and ∂g/∂x into jac, row-major
	// with one row per output.
	EvalWithJacobian(x, out, jac []float64) error
}

// Cost is a differentiable scalar cost over a subset of the program's
// variables. When grad is non-nil it must be filled with the gradient.
type Cost interface {
	Eval(x, grad []float64) (float64, error)
}

type boundConstraint struct {
	constraint Constraint
	vars       []Variable
}

type boundCost struct {
	cost Cost
	vars []Variable
}

// Program owns the decision variables and the constraint/cost set.
type Program struct {
	logger golog.Logger

	names        []string
	lower, upper []float64
	guess        []float64
	guessSet     []bool

	constraints []boundConstraint
	costs       []boundCost

	maxEval        int
	constraintTol  float64
	feasibilityTol float64

	result   SolutionResult
	solution []float64
}

// NewProgram returns an empty program.
func NewProgram(logger golog.Logger) *Program {
	return &Program{
		logger:         logger,
		maxEval:        defaultMaxEval,
		constraintTol:  defaultConstraintTol,
		feasibilityTol: defaultFeasibilityTol,
		result:         SolutionResultUnsolved,
	}
}

// NumVariables returns the number of decision variables created so far.
func (p *Program) NumVariables() int { return len(p.lower) }

// NewVariables appends n decision variables named after the given label and
// returns their handles. Variables start unbounded with a zero initial guess.
func (p *Program) NewVariables(n int, name string) []Variable {
	vars := make([]Variable, n)
	for i := 0; i < n; i++ {
		vars[i] = Variable(len(p.lower))
		p.names = append(p.names, name)
		p.lower = append(p.lower, math.Inf(-1))
		p.upper = append(p.upper, math.Inf(1))
		p.guess = append(p.guess, 0)
		p.guessSet = append(p.guessSet, false)
	}
	return vars
}

func (p *Program) checkVars(vars []Variable) error {
	for _, v := range vars {
		if int(v) < 0 || int(v) >= p.NumVariables() {
			return newUnknownVariableError(int(v), p.NumVariables())
		}
	}
	return nil
}

// AddBoundingBoxConstraint tightens the box lb ≤ x ≤ ub on each given
// variable. Boxes intersect, so repeated calls only ever narrow the range.
func (p *Program) AddBoundingBoxConstraint(lb, ub float64, vars ...Variable) error {
	if lb > ub {
		return newInvertedBoundsError(lb, ub)
	}
	if err := p.checkVars(vars); err != nil {
		return err
	}
	for _, v := range vars {
		p.lower[v] = math.Max(p.lower[v], lb)
		p.upper[v] = math.Min(p.upper[v], ub)
		if p.lower[v] > p.upper[v] {
			return newInvertedBoundsError(p.lower[v], p.upper[v])
		}
	}
	return nil
}

// AddConstraint registers a generic constraint over the given variables.
func (p *Program) AddConstraint(c Constraint, vars []Variable) error {
	if err := p.checkVars(vars); err != nil {
		return err
	}
	lb, ub := c.Bounds()
	if len(lb) != c.NumOutputs() || len(ub) != c.NumOutputs() {
		return newBoundsSizeError(c.NumOutputs(), len(lb), len(ub))
	}
	p.constraints = append(p.constraints, boundConstraint{constraint: c, vars: vars})
	return nil
}

// AddCost registers a cost term over the given variables. The program
// objective is the sum of all registered costs.
func (p *Program) AddCost(c Cost, vars []Variable) error {
	if err := p.checkVars(vars); err != nil {
		return err
	}
	p.costs = append(p.costs, boundCost{cost: c, vars: vars})
	return nil
}

// SetInitialGuess seeds the given variables for the solver. Unseeded
// variables start at the midpoint of their box, or zero if unbounded.
func (p *Program) SetInitialGuess(vars []Variable, values []float64) error {
	if len(values) != len(vars) {
		return newValueSizeError(len(vars), len(values))
	}
	if err := p.checkVars(vars); err != nil {
		return err
	}
	for i, v := range vars {
		p.guess[v] = values[i]
		p.guessSet[v] = true
	}
	return nil
}

// Result returns the status of the last Solve.
func (p *Program) Result() SolutionResult { return p.result }

// GetSolution returns the solved values of the given variables. Solve must
// have found a solution first.
func (p *Program) GetSolution(vars ...Variable) ([]float64, error) {
	if p.solution == nil {
		return nil, errNotSolved
	}
	if err := p.checkVars(vars); err != nil {
		return nil, err
	}
	out := make([]float64, len(vars))
	for i, v := range vars {
		out[i] = p.solution[v]
	}
	return out, nil
}

func (p *Program) gather(x []float64, vars []Variable, dst []float64) []float64 {
	for i, v := range vars {
		dst[i] = x[v]
	}
	return dst
}
