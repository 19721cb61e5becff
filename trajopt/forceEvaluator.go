package trajopt

import "github.com/DiitsGp/drake/multibody"

// GeneralizedConstraintForceEvaluator computes one additive contribution to
// the generalized constraint force vector (length nv) from a configuration
// and its own slice of force multipliers. Implementations declare how many
// multipliers they consume; the count is fixed after construction.
// Registering several evaluators on a transcription constraint sums their
// contributions, which is how joint limits, contact models and other force
// sources plug in without the constraint knowing their form.
type GeneralizedConstraintForceEvaluator[S multibody.Scalar[S]] interface {
	// NumMultipliers returns the length of this evaluator's multiplier
	// slice, ≥ 0.
	NumMultipliers() int
	// EvaluateGeneralizedForce returns this evaluator's generalized force
	// at configuration q with multipliers lambda.
	EvaluateGeneralizedForce(q, lambda []S) ([]S, error)
}

// PositionConstraintForceEvaluator computes J(q)ᵀλ for the engine's built-in
// holonomic position constraints. It owns a position-only kinematics cache,
// since the constraint Jacobian needs no velocities.
type PositionConstraintForceEvaluator[S multibody.Scalar[S]] struct {
	engine multibody.Engine[S]
	helper *KinematicsCacheHelper[S]
}

// NewPositionConstraintForceEvaluator returns an evaluator over the engine's
// built-in position constraints.
func NewPositionConstraintForceEvaluator[S multibody.Scalar[S]](engine multibody.Engine[S]) *PositionConstraintForceEvaluator[S] {
	return &PositionConstraintForceEvaluator[S]{
		engine: engine,
		helper: NewKinematicsCacheHelper(engine),
	}
}

// NumMultipliers returns the engine's position constraint count.
func (e *PositionConstraintForceEvaluator[S]) NumMultipliers() int {
	return e.engine.NumPositionConstraints()
}

// EvaluateGeneralizedForce returns J(q)ᵀλ.
func (e *PositionConstraintForceEvaluator[S]) EvaluateGeneralizedForce(q, lambda []S) ([]S, error) {
	if len(q) != e.engine.NumPositions() {
		return nil, multibody.NewDimensionMismatchError("position constraint force configuration", e.engine.NumPositions(), len(q))
	}
	if len(lambda) != e.NumMultipliers() {
		return nil, multibody.NewDimensionMismatchError("position constraint force multipliers", e.NumMultipliers(), len(lambda))
	}
	kin, err := e.helper.UpdateKinematics(q)
	if err != nil {
		return nil, err
	}
	jac, err := e.engine.PositionConstraintJacobian(kin)
	if err != nil {
		return nil, err
	}
	return jac.TransposeMulVec(lambda)
}

// JointLimitForceEvaluator contributes the contact force of one joint's
// limits to the generalized force: λ_lower − λ_upper on the joint's velocity
// row. The upper-limit force pushes the joint down, the lower-limit force
// pushes it up. Multiplier order is [λ_lower, λ_upper].
type JointLimitForceEvaluator[S multibody.Scalar[S]] struct {
	velocityIndex int
	numVelocities int
}

// NewJointLimitForceEvaluator returns an evaluator acting on the given
// velocity row of an nv-dimensional force vector.
func NewJointLimitForceEvaluator[S multibody.Scalar[S]](velocityIndex, numVelocities int) (*JointLimitForceEvaluator[S], error) {
	if velocityIndex < 0 || velocityIndex >= numVelocities {
		return nil, newJointIndexError("velocity", velocityIndex, numVelocities)
	}
	return &JointLimitForceEvaluator[S]{velocityIndex: velocityIndex, numVelocities: numVelocities}, nil
}

// NumMultipliers returns 2, the lower- and upper-limit forces.
func (e *JointLimitForceEvaluator[S]) NumMultipliers() int { return 2 }

// EvaluateGeneralizedForce returns e_joint·(λ_lower − λ_upper).
func (e *JointLimitForceEvaluator[S]) EvaluateGeneralizedForce(q, lambda []S) ([]S, error) {
	if len(lambda) != e.NumMultipliers() {
		return nil, multibody.NewDimensionMismatchError("joint limit force multipliers", e.NumMultipliers(), len(lambda))
	}
	var z S
	force := make([]S, e.numVelocities)
	for i := range force {
		force[i] = z.Const(0)
	}
	force[e.velocityIndex] = lambda[0].Sub(lambda[1])
	return force, nil
}
