// Package planarlink implements a planar n-link chain as a multibody engine.
// Links are rigid rods hinged in series, each carrying a point mass at its
// tip, with generalized positions the absolute link angles measured from the
// world x-axis. Optionally the chain tip is pinned to a fixed world point,
// which closes the loop and contributes two holonomic position constraints.
package planarlink

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/DiitsGp/drake/multibody"
)

// Pin fixes the chain tip to a world point, closing the kinematic loop.
type Pin struct {
	X, Y float64
}

// Chain is a planar link chain implementing multibody.Engine.
type Chain[S multibody.Scalar[S]] struct {
	lengths []float64
	masses  []float64
	gravity float64
	// mSuffix[i] is the total mass carried at or beyond link i.
	mSuffix  []float64
	actuated []int
	b        *mat.Dense
	pin      *Pin
}

// NewChain builds a chain from per-link lengths and tip masses. The actuated
// slice lists the joints driven by an actuator, one actuator per entry, in
// order. A non-nil pin closes the loop at the chain tip.
func NewChain[S multibody.Scalar[S]](lengths, masses []float64, gravity float64, actuated []int, pin *Pin) (*Chain[S], error) {
	if len(lengths) == 0 {
		return nil, errors.New("chain needs at least one link")
	}
	if len(masses) != len(lengths) {
		return nil, multibody.NewDimensionMismatchError("chain masses", len(lengths), len(masses))
	}
	for i, l := range lengths {
		if l <= 0 {
			return nil, errors.Errorf("link %d has non-positive length %f", i, l)
		}
		if masses[i] <= 0 {
			return nil, errors.Errorf("link %d has non-positive mass %f", i, masses[i])
		}
	}
	n := len(lengths)
	mSuffix := make([]float64, n)
	total := 0.
	for i := n - 1; i >= 0; i-- {
		total += masses[i]
		mSuffix[i] = total
	}
	// A single zero column keeps B well-formed for unactuated chains.
	nu := len(actuated)
	if nu == 0 {
		nu = 1
	}
	b := mat.NewDense(n, nu, nil)
	for a, joint := range actuated {
		if joint < 0 || joint >= n {
			return nil, errors.Errorf("actuated joint %d out of range [0, %d)", joint, n)
		}
		b.Set(joint, a, 1)
	}
	return &Chain[S]{
		lengths:  lengths,
		masses:   masses,
		gravity:  gravity,
		mSuffix:  mSuffix,
		actuated: actuated,
		b:        b,
		pin:      pin,
	}, nil
}

// NumPositions returns the number of links.
func (c *Chain[S]) NumPositions() int { return len(c.lengths) }

// NumVelocities returns the number of links.
func (c *Chain[S]) NumVelocities() int { return len(c.lengths) }

// NumActuators returns the number of actuated joints.
func (c *Chain[S]) NumActuators() int {
	if len(c.actuated) == 0 {
		return 1
	}
	return len(c.actuated)
}

// NumPositionConstraints returns 2 for a pinned tip, 0 otherwise.
func (c *Chain[S]) NumPositionConstraints() int {
	if c.pin == nil {
		return 0
	}
	return 2
}

// ActuatorSelectionMatrix returns B.
func (c *Chain[S]) ActuatorSelectionMatrix() *mat.Dense { return c.b }

type chainKinematics[S multibody.Scalar[S]] struct {
	q, v     []S
	sin, cos []S
}

func (k *chainKinematics[S]) Positions() []S  { return k.q }
func (k *chainKinematics[S]) Velocities() []S { return k.v }

func (c *Chain[S]) newKinematics(q, v []S) (*chainKinematics[S], error) {
	if len(q) != c.NumPositions() {
		return nil, multibody.NewDimensionMismatchError("chain configuration", c.NumPositions(), len(q))
	}
	if v != nil && len(v) != c.NumVelocities() {
		return nil, multibody.NewDimensionMismatchError("chain velocity", c.NumVelocities(), len(v))
	}
	k := &chainKinematics[S]{
		q:   append([]S(nil), q...),
		sin: make([]S, len(q)),
		cos: make([]S, len(q)),
	}
	if v != nil {
		k.v = append([]S(nil), v...)
	}
	for i, qi := range q {
		k.sin[i] = qi.Sin()
		k.cos[i] = qi.Cos()
	}
	return k, nil
}

// ComputeKinematics computes position kinematics at q.
func (c *Chain[S]) ComputeKinematics(q []S) (multibody.Kinematics[S], error) {
	return c.newKinematics(q, nil)
}

// ComputeKinematicsWithVelocity computes kinematics at (q, v).
func (c *Chain[S]) ComputeKinematicsWithVelocity(q, v []S) (multibody.Kinematics[S], error) {
	if v == nil {
		return nil, multibody.NewDimensionMismatchError("chain velocity", c.NumVelocities(), 0)
	}
	return c.newKinematics(q, v)
}

func (c *Chain[S]) ownKinematics(k multibody.Kinematics[S]) (*chainKinematics[S], error) {
	ck, ok := k.(*chainKinematics[S])
	if !ok {
		return nil, errors.New("kinematics solution was not produced by this chain")
	}
	return ck, nil
}

// MassMatrix returns the chain's mass matrix,
// M[i][j] = lᵢ lⱼ cos(θᵢ−θⱼ) Σ_{k≥max(i,j)} mₖ.
func (c *Chain[S]) MassMatrix(k multibody.Kinematics[S]) (*multibody.Matrix[S], error) {
	ck, err := c.ownKinematics(k)
	if err != nil {
		return nil, err
	}
	n := c.NumPositions()
	m := multibody.NewMatrix[S](n, n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			// cos(θi−θj) = cos θi cos θj + sin θi sin θj
			cosDiff := ck.cos[i].Mul(ck.cos[j]).Add(ck.sin[i].Mul(ck.sin[j]))
			mij := cosDiff.Scale(c.lengths[i] * c.lengths[j] * c.mSuffix[i])
			m.Set(i, j, mij)
			m.Set(j, i, mij)
		}
	}
	return m, nil
}

// DynamicsBiasTerm returns the Coriolis plus gravity bias,
// cᵢ = Σⱼ lᵢ lⱼ sin(θᵢ−θⱼ) Σ_{k≥max(i,j)} mₖ · θ̇ⱼ² + g lᵢ cos θᵢ Σ_{k≥i} mₖ.
func (c *Chain[S]) DynamicsBiasTerm(k multibody.Kinematics[S]) ([]S, error) {
	ck, err := c.ownKinematics(k)
	if err != nil {
		return nil, err
	}
	if ck.v == nil {
		return nil, multibody.NewMissingVelocityError("dynamics bias term")
	}
	n := c.NumPositions()
	bias := make([]S, n)
	for i := 0; i < n; i++ {
		acc := ck.cos[i].Scale(c.gravity * c.lengths[i] * c.mSuffix[i])
		for j := 0; j < n; j++ {
			// sin(θi−θj) = sin θi cos θj − cos θi sin θj
			sinDiff := ck.sin[i].Mul(ck.cos[j]).Sub(ck.cos[i].Mul(ck.sin[j]))
			suffix := c.mSuffix[i]
			if j > i {
				suffix = c.mSuffix[j]
			}
			vj2 := ck.v[j].Mul(ck.v[j])
			acc = acc.Add(sinDiff.Mul(vj2).Scale(c.lengths[i] * c.lengths[j] * suffix))
		}
		bias[i] = acc
	}
	return bias, nil
}

// PositionConstraintJacobian returns the Jacobian of the tip-pin constraint
// φ(q) = Σᵢ lᵢ [cos θᵢ; sin θᵢ] − p = 0, or a 0 x nv matrix when unpinned.
func (c *Chain[S]) PositionConstraintJacobian(k multibody.Kinematics[S]) (*multibody.Matrix[S], error) {
	ck, err := c.ownKinematics(k)
	if err != nil {
		return nil, err
	}
	n := c.NumPositions()
	if c.pin == nil {
		return multibody.NewMatrix[S](0, n), nil
	}
	j := multibody.NewMatrix[S](2, n)
	for i := 0; i < n; i++ {
		j.Set(0, i, ck.sin[i].Scale(-c.lengths[i]))
		j.Set(1, i, ck.cos[i].Scale(c.lengths[i]))
	}
	return j, nil
}

// PositionConstraints evaluates the tip-pin constraint value φ(q). Useful for
// seeding and for checking loop closure of a candidate configuration.
func (c *Chain[S]) PositionConstraints(k multibody.Kinematics[S]) ([]S, error) {
	ck, err := c.ownKinematics(k)
	if err != nil {
		return nil, err
	}
	if c.pin == nil {
		return nil, nil
	}
	var z S
	x := z.Const(-c.pin.X)
	y := z.Const(-c.pin.Y)
	for i := range ck.q {
		x = x.Add(ck.cos[i].Scale(c.lengths[i]))
		y = y.Add(ck.sin[i].Scale(c.lengths[i]))
	}
	return []S{x, y}, nil
}
