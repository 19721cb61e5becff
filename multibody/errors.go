package multibody

import "github.com/pkg/errors"

// NewDimensionMismatchError returns an error for a caller-supplied vector or
// matrix of the wrong size.
func NewDimensionMismatchError(what string, want, got int) error {
	return errors.Errorf("dimension mismatch in %s: want %d, got %d", what, want, got)
}

// NewMissingVelocityError returns an error for a velocity-dependent query made
// against a position-only kinematics solution.
func NewMissingVelocityError(what string) error {
	return errors.Errorf("%s requires kinematics computed with velocities", what)
}
