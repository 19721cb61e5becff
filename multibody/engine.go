package multibody

import "gonum.org/v1/gonum/mat"

// Kinematics is an engine's computed kinematics solution for one
// configuration (and optionally one velocity). Engines hand back their own
// concrete type and accept it again in the dynamics queries below.
type Kinematics[S Scalar[S]] interface {
	// Positions returns the configuration this solution was computed at.
	Positions() []S
	// Velocities returns the velocity this solution was computed at, or nil
	// if the solution is position-only.
	Velocities() []S
}

// Engine supplies the multibody dynamics quantities consumed by the
// trajectory optimizer: the equations of motion are
//
//	M(q,v) v̇ = B·u + J(q)ᵀλ − c(q,v)
//
// with M the mass matrix, c the bias term (Coriolis + gravity), B the constant
// actuator-selection matrix and J the Jacobian of the engine's built-in
// holonomic position constraints. The model's dimensions are fixed for the
// engine's lifetime.
type Engine[S Scalar[S]] interface {
	// NumPositions returns the number of generalized positions nq.
	NumPositions() int
	// NumVelocities returns the number of generalized velocities nv.
	NumVelocities() int
	// NumActuators returns the number of actuators nu.
	NumActuators() int
	// NumPositionConstraints returns the number of built-in holonomic
	// position constraints nc.
	NumPositionConstraints() int

	// ActuatorSelectionMatrix returns the constant nv x nu matrix B.
	ActuatorSelectionMatrix() *mat.Dense

	// ComputeKinematics computes position kinematics at q. Sufficient for
	// PositionConstraintJacobian; velocity-dependent queries need
	// ComputeKinematicsWithVelocity.
	ComputeKinematics(q []S) (Kinematics[S], error)
	// ComputeKinematicsWithVelocity computes kinematics at (q, v).
	ComputeKinematicsWithVelocity(q, v []S) (Kinematics[S], error)

	// MassMatrix returns the nv x nv mass matrix at the solution's
	// configuration.
	MassMatrix(k Kinematics[S]) (*Matrix[S], error)
	// DynamicsBiasTerm returns the length-nv bias term c(q, v), with no
	// external wrenches applied. The solution must carry velocities.
	DynamicsBiasTerm(k Kinematics[S]) ([]S, error)
	// PositionConstraintJacobian returns the nc x nv Jacobian of the
	// built-in position constraints.
	PositionConstraintJacobian(k Kinematics[S]) (*Matrix[S], error)
}
