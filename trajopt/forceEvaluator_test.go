package trajopt

import (
	"testing"

	"go.viam.com/test"

	"github.com/DiitsGp/drake/multibody"
)

func TestPositionConstraintForceEvaluator(t *testing.T) {
	chain := newFourBar[multibody.Real](t)
	eval := NewPositionConstraintForceEvaluator[multibody.Real](chain)
	test.That(t, eval.NumMultipliers(), test.ShouldEqual, 2)

	toReal := multibody.Constants[multibody.Real]
	q := toReal([]float64{0.2, 1.1, -0.4, 2.5})
	lambda := toReal([]float64{3, -1})
	force, err := eval.EvaluateGeneralizedForce(q, lambda)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, force, test.ShouldHaveLength, 4)

	kin, err := chain.ComputeKinematics(q)
	test.That(t, err, test.ShouldBeNil)
	jac, err := chain.PositionConstraintJacobian(kin)
	test.That(t, err, test.ShouldBeNil)
	for i := range force {
		want := jac.At(0, i).Mul(lambda[0]).Add(jac.At(1, i).Mul(lambda[1]))
		test.That(t, force[i].Value(), test.ShouldAlmostEqual, want.Value(), 1e-12)
	}

	_, err = eval.EvaluateGeneralizedForce(q[:2], lambda)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = eval.EvaluateGeneralizedForce(q, lambda[:1])
	test.That(t, err, test.ShouldNotBeNil)
}

func TestJointLimitForceEvaluator(t *testing.T) {
	_, err := NewJointLimitForceEvaluator[multibody.Real](4, 4)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewJointLimitForceEvaluator[multibody.Real](-1, 4)
	test.That(t, err, test.ShouldNotBeNil)

	eval, err := NewJointLimitForceEvaluator[multibody.Real](1, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, eval.NumMultipliers(), test.ShouldEqual, 2)

	force, err := eval.EvaluateGeneralizedForce(nil, []multibody.Real{5, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, multibody.Values(force), test.ShouldResemble, []float64{0, 3, 0, 0})

	_, err = eval.EvaluateGeneralizedForce(nil, []multibody.Real{5})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestJointLimitComplementarity(t *testing.T) {
	c := &jointLimitComplementarity{lower: -1, upper: 2}
	lb, ub := c.Bounds()
	test.That(t, lb, test.ShouldResemble, []float64{0, 0})
	test.That(t, ub, test.ShouldResemble, []float64{0, 0})

	x := []float64{0.5, 3, 4}
	out := make([]float64, 2)
	jac := make([]float64, 6)
	test.That(t, c.EvalWithJacobian(x, out, jac), test.ShouldBeNil)
	test.That(t, out[0], test.ShouldAlmostEqual, (0.5-(-1))*3, 1e-12)
	test.That(t, out[1], test.ShouldAlmostEqual, (2-0.5)*4, 1e-12)

	// Jacobian against central differences.
	const eps = 1e-7
	for j := range x {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[j] += eps
		xm[j] -= eps
		plus := make([]float64, 2)
		minus := make([]float64, 2)
		test.That(t, c.Eval(xp, plus), test.ShouldBeNil)
		test.That(t, c.Eval(xm, minus), test.ShouldBeNil)
		for i := 0; i < 2; i++ {
			fd := (plus[i] - minus[i]) / (2 * eps)
			test.That(t, jac[i*3+j], test.ShouldAlmostEqual, fd, 1e-6)
		}
	}

	err := c.Eval([]float64{1, 2}, out)
	test.That(t, err, test.ShouldNotBeNil)
}
