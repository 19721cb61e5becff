package mathprog

import "github.com/pkg/errors"

var (
	errNotSolved   = errors.New("program has no solution yet; call Solve and check its result first")
	errEmptyBounds = errors.New("cannot set nlopt variable bounds, program has no variables")
)

func newUnknownVariableError(v, numVars int) error {
	return errors.Errorf("variable %d is not owned by this program (have %d variables)", v, numVars)
}

func newInvertedBoundsError(lb, ub float64) error {
	return errors.Errorf("bounding box is empty: lower bound %f exceeds upper bound %f", lb, ub)
}

func newBoundsSizeError(numOutputs, lbLen, ubLen int) error {
	return errors.Errorf("constraint bounds sized %d/%d do not match %d outputs", lbLen, ubLen, numOutputs)
}

func newValueSizeError(want, got int) error {
	return errors.Errorf("got %d values for %d variables", got, want)
}
