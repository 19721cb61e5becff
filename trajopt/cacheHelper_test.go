package trajopt

import (
	"testing"

	"go.viam.com/test"

	"github.com/DiitsGp/drake/multibody"
	"github.com/DiitsGp/drake/multibody/planarlink"
)

// countingEngine wraps an engine and counts kinematics computations.
type countingEngine struct {
	multibody.Engine[multibody.Real]
	computes int
}

func (e *countingEngine) ComputeKinematics(q []multibody.Real) (multibody.Kinematics[multibody.Real], error) {
	e.computes++
	return e.Engine.ComputeKinematics(q)
}

func (e *countingEngine) ComputeKinematicsWithVelocity(q, v []multibody.Real) (multibody.Kinematics[multibody.Real], error) {
	e.computes++
	return e.Engine.ComputeKinematicsWithVelocity(q, v)
}

func newCountingEngine(t *testing.T) *countingEngine {
	t.Helper()
	chain, err := planarlink.NewChain[multibody.Real]([]float64{1, 1}, []float64{1, 1}, 9.81, []int{0}, nil)
	test.That(t, err, test.ShouldBeNil)
	return &countingEngine{Engine: chain}
}

func TestKinematicsCacheHelper(t *testing.T) {
	engine := newCountingEngine(t)
	helper := NewKinematicsCacheHelper[multibody.Real](engine)

	q := []multibody.Real{0.1, 0.2}
	kin1, err := helper.UpdateKinematics(q)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, engine.computes, test.ShouldEqual, 1)

	// Same configuration: cached solution, same instance, no recompute.
	kin2, err := helper.UpdateKinematics([]multibody.Real{0.1, 0.2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, engine.computes, test.ShouldEqual, 1)
	test.That(t, kin2, test.ShouldEqual, kin1)

	// Any difference recomputes.
	_, err = helper.UpdateKinematics([]multibody.Real{0.1, 0.3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, engine.computes, test.ShouldEqual, 2)
}

func TestKinematicsCacheWithVHelper(t *testing.T) {
	engine := newCountingEngine(t)
	helper := NewKinematicsCacheWithVHelper[multibody.Real](engine)

	q := []multibody.Real{0.1, 0.2}
	v := []multibody.Real{1, 2}
	_, err := helper.UpdateKinematics(q, v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, engine.computes, test.ShouldEqual, 1)

	_, err = helper.UpdateKinematics([]multibody.Real{0.1, 0.2}, []multibody.Real{1, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, engine.computes, test.ShouldEqual, 1)

	// A velocity-only change must recompute.
	_, err = helper.UpdateKinematics(q, []multibody.Real{1, 2.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, engine.computes, test.ShouldEqual, 2)
}

// The cache compares structurally, so the same values with different
// derivative seeds are different configurations.
func TestCacheDistinguishesDerivativeSeeds(t *testing.T) {
	chain, err := planarlink.NewChain[multibody.Dual]([]float64{1, 1}, []float64{1, 1}, 9.81, []int{0}, nil)
	test.That(t, err, test.ShouldBeNil)
	helper := NewKinematicsCacheHelper[multibody.Dual](chain)

	vals := []float64{0.1, 0.2}
	kin1, err := helper.UpdateKinematics(multibody.Seed(vals, 0))
	test.That(t, err, test.ShouldBeNil)
	kin2, err := helper.UpdateKinematics(multibody.Seed(vals, 1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kin1, test.ShouldNotEqual, kin2)
}
