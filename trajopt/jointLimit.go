package trajopt

import "math"

// jointLimitComplementarity is the slackness half of the joint-limit contact
// model, over the variable slice [q_joint, λ_lower, λ_upper]:
//
//	(q − lower)·λ_lower = 0
//	(upper − q)·λ_upper = 0
//
// Multiplier non-negativity and the position box live on the variables
// themselves. This is the usual NLP relaxation of complementarity: nothing
// structurally prevents both multipliers from being positive at a feasible
// point where neither bound is active; the solver has to converge away from
// that on its own.
type jointLimitComplementarity struct {
	lower, upper float64
}

func (c *jointLimitComplementarity) NumOutputs() int { return 2 }

func (c *jointLimitComplementarity) Bounds() (lb, ub []float64) {
	zeros := []float64{0, 0}
	return zeros, zeros
}

func (c *jointLimitComplementarity) Eval(x, out []float64) error {
	return c.EvalWithJacobian(x, out, nil)
}

func (c *jointLimitComplementarity) EvalWithJacobian(x, out, jac []float64) error {
	if len(x) != 3 {
		return newComplementarityInputError(len(x))
	}
	q, lambdaLower, lambdaUpper := x[0], x[1], x[2]
	out[0] = (q - c.lower) * lambdaLower
	out[1] = (c.upper - q) * lambdaUpper
	if jac != nil {
		copy(jac, []float64{
			lambdaLower, q - c.lower, 0,
			-lambdaUpper, 0, c.upper - q,
		})
	}
	return nil
}

func validJointLimits(lower, upper float64) bool {
	return lower <= upper && !math.IsNaN(lower) && !math.IsNaN(upper)
}
