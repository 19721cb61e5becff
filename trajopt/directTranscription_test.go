package trajopt

import (
	"testing"

	"go.viam.com/test"

	"github.com/DiitsGp/drake/multibody"
	"github.com/DiitsGp/drake/multibody/planarlink"
)

var (
	fourBarLengths = []float64{1, 1, 1, 1}
	fourBarMasses  = []float64{1, 1, 1, 1}
	fourBarPin     = planarlink.Pin{X: 1, Y: 1}
)

func newFourBar[S multibody.Scalar[S]](t *testing.T) *planarlink.Chain[S] {
	t.Helper()
	chain, err := planarlink.NewChain[S](fourBarLengths, fourBarMasses, 9.81, []int{0}, &fourBarPin)
	test.That(t, err, test.ShouldBeNil)
	return chain
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

func TestDirectTranscriptionConstraintEval(t *testing.T) {
	chain := newFourBar[multibody.Real](t)
	constraint, err := NewDirectTranscriptionConstraint[multibody.Real](chain, NewKinematicsCacheWithVHelper[multibody.Real](chain))
	test.That(t, err, test.ShouldBeNil)
	err = constraint.AddGeneralizedConstraintForceEvaluator(NewPositionConstraintForceEvaluator[multibody.Real](chain))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, constraint.NumMultipliers(), test.ShouldEqual, 2)
	test.That(t, constraint.NumInputs(), test.ShouldEqual, 1+4+4+4+4+1+2)
	test.That(t, constraint.NumOutputs(), test.ShouldEqual, 8)

	h := 0.1
	ql := linspace(0, 1, 4)
	vl := linspace(0, 2, 4)
	qr := linspace(-1, 1, 4)
	vr := linspace(-2, 3, 4)
	ur := linspace(2, 3, 1)
	lambda := linspace(3, 5, 2)

	toReal := multibody.Constants[multibody.Real]
	x, err := constraint.CompositeEvalInput(multibody.Real(h), toReal(ql), toReal(vl), toReal(qr), toReal(vr), toReal(ur), toReal(lambda))
	test.That(t, err, test.ShouldBeNil)
	y, err := constraint.Eval(x)
	test.That(t, err, test.ShouldBeNil)

	// Hand-computed backward Euler residual at the right state.
	kin, err := chain.ComputeKinematicsWithVelocity(toReal(qr), toReal(vr))
	test.That(t, err, test.ShouldBeNil)
	mass, err := chain.MassMatrix(kin)
	test.That(t, err, test.ShouldBeNil)
	bias, err := chain.DynamicsBiasTerm(kin)
	test.That(t, err, test.ShouldBeNil)
	jac, err := chain.PositionConstraintJacobian(kin)
	test.That(t, err, test.ShouldBeNil)
	jtLambda, err := jac.TransposeMulVec(toReal(lambda))
	test.That(t, err, test.ShouldBeNil)
	b := chain.ActuatorSelectionMatrix()

	for i := 0; i < 4; i++ {
		expected := qr[i] - ql[i] - vr[i]*h
		test.That(t, y[i].Value(), test.ShouldAlmostEqual, expected, 1e-10)
	}
	for i := 0; i < 4; i++ {
		mdv := 0.
		for j := 0; j < 4; j++ {
			mdv += mass.At(i, j).Value() * (vr[j] - vl[j])
		}
		force := b.At(i, 0)*ur[0] + jtLambda[i].Value() - bias[i].Value()
		test.That(t, y[4+i].Value(), test.ShouldAlmostEqual, mdv-force*h, 1e-10)
	}

	// Identical inputs evaluate identically.
	y2, err := constraint.Eval(x)
	test.That(t, err, test.ShouldBeNil)
	for i := range y {
		test.That(t, y2[i].Value(), test.ShouldEqual, y[i].Value())
	}

	// The evaluator list is sealed after the first evaluation.
	err = constraint.AddGeneralizedConstraintForceEvaluator(NewPositionConstraintForceEvaluator[multibody.Real](chain))
	test.That(t, err, test.ShouldBeError, errEvaluatorsSealed)
}

// With no registered evaluators the residual is the unconstrained backward
// Euler relation M(v_r−v_l) = (B·u_r − c)·h.
func TestDirectTranscriptionConstraintNoEvaluators(t *testing.T) {
	chain, err := planarlink.NewChain[multibody.Real]([]float64{1, 0.5}, []float64{1, 2}, 9.81, []int{0}, nil)
	test.That(t, err, test.ShouldBeNil)
	constraint, err := NewDirectTranscriptionConstraint[multibody.Real](chain, NewKinematicsCacheWithVHelper[multibody.Real](chain))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, constraint.NumMultipliers(), test.ShouldEqual, 0)
	test.That(t, constraint.NumInputs(), test.ShouldEqual, 1+2+2+2+2+1)

	h := 0.05
	ql, vl := []float64{0.1, 0.2}, []float64{0.3, -0.4}
	qr, vr := []float64{0.15, 0.25}, []float64{0.5, -0.1}
	ur := []float64{1.5}

	toReal := multibody.Constants[multibody.Real]
	x, err := constraint.CompositeEvalInput(multibody.Real(h), toReal(ql), toReal(vl), toReal(qr), toReal(vr), toReal(ur), nil)
	test.That(t, err, test.ShouldBeNil)
	y, err := constraint.Eval(x)
	test.That(t, err, test.ShouldBeNil)

	kin, err := chain.ComputeKinematicsWithVelocity(toReal(qr), toReal(vr))
	test.That(t, err, test.ShouldBeNil)
	mass, err := chain.MassMatrix(kin)
	test.That(t, err, test.ShouldBeNil)
	bias, err := chain.DynamicsBiasTerm(kin)
	test.That(t, err, test.ShouldBeNil)
	b := chain.ActuatorSelectionMatrix()
	for i := 0; i < 2; i++ {
		mdv := 0.
		for j := 0; j < 2; j++ {
			mdv += mass.At(i, j).Value() * (vr[j] - vl[j])
		}
		force := b.At(i, 0)*ur[0] - bias[i].Value()
		test.That(t, y[2+i].Value(), test.ShouldAlmostEqual, mdv-force*h, 1e-12)
	}
}

func TestDirectTranscriptionConstraintDimensionErrors(t *testing.T) {
	chain := newFourBar[multibody.Real](t)
	constraint, err := NewDirectTranscriptionConstraint[multibody.Real](chain, NewKinematicsCacheWithVHelper[multibody.Real](chain))
	test.That(t, err, test.ShouldBeNil)

	toReal := multibody.Constants[multibody.Real]
	_, err = constraint.CompositeEvalInput(multibody.Real(0.1), toReal([]float64{0}), nil, nil, nil, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = constraint.Eval(make([]multibody.Real, 3))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewDirectTranscriptionConstraint[multibody.Real](chain, nil)
	test.That(t, err, test.ShouldBeError, errNilCacheHelper)
}

// The dual-seeded Jacobian must agree with finite differences of the plain
// evaluation.
func TestTranscriptionBindingJacobian(t *testing.T) {
	chain := newFourBar[multibody.Dual](t)
	constraint, err := NewDirectTranscriptionConstraint[multibody.Dual](chain, NewKinematicsCacheWithVHelper[multibody.Dual](chain))
	test.That(t, err, test.ShouldBeNil)
	err = constraint.AddGeneralizedConstraintForceEvaluator(NewPositionConstraintForceEvaluator[multibody.Dual](chain))
	test.That(t, err, test.ShouldBeNil)
	binding := newTranscriptionBinding(constraint)

	n := constraint.NumInputs()
	m := constraint.NumOutputs()
	x := linspace(-0.8, 1.7, n)
	x[0] = 0.1 // timestep

	out := make([]float64, m)
	jac := make([]float64, m*n)
	test.That(t, binding.EvalWithJacobian(x, out, jac), test.ShouldBeNil)

	plain := make([]float64, m)
	test.That(t, binding.Eval(x, plain), test.ShouldBeNil)
	for i := range plain {
		test.That(t, out[i], test.ShouldAlmostEqual, plain[i], 1e-12)
	}

	const eps = 1e-6
	plus := make([]float64, m)
	minus := make([]float64, m)
	for j := 0; j < n; j++ {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[j] += eps
		xm[j] -= eps
		test.That(t, binding.Eval(xp, plus), test.ShouldBeNil)
		test.That(t, binding.Eval(xm, minus), test.ShouldBeNil)
		for i := 0; i < m; i++ {
			fd := (plus[i] - minus[i]) / (2 * eps)
			test.That(t, jac[i*n+j], test.ShouldAlmostEqual, fd, 1e-4)
		}
	}
}
