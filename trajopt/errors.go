package trajopt

import "github.com/pkg/errors"

var (
	errTooFewKnots      = errors.New("trajectory needs at least two knots")
	errAlreadyCompiled  = errors.New("transcription constraints were already compiled")
	errNotCompiled      = errors.New("Compile must be called before solving")
	errEvaluatorsSealed = errors.New("cannot add a constraint force evaluator after the first evaluation")
	errNilCacheHelper   = errors.New("transcription constraint needs a kinematics cache helper")
)

func newTimestepBoundsError(minTimestep, maxTimestep float64) error {
	return errors.Errorf("timestep bounds must satisfy 0 < min ≤ max, got [%f, %f]", minTimestep, maxTimestep)
}

func newKnotIndexError(knot, numKnots int) error {
	return errors.Errorf("knot %d out of range [0, %d)", knot, numKnots)
}

func newIntervalIndexError(interval, numIntervals int) error {
	return errors.Errorf("interval %d out of range [0, %d)", interval, numIntervals)
}

func newJointIndexError(what string, joint, limit int) error {
	return errors.Errorf("joint %s index %d out of range [0, %d)", what, joint, limit)
}

func newJointLimitBoundsError(lower, upper float64) error {
	return errors.Errorf("joint limits are inverted: [%f, %f]", lower, upper)
}

func newComplementarityInputError(got int) error {
	return errors.Errorf("complementarity constraint takes [q, λ_lower, λ_upper], got %d values", got)
}
