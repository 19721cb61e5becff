package trajopt

import (
	"github.com/DiitsGp/drake/multibody"
)

// DirectTranscriptionConstraint is the per-interval backward-Euler residual.
// For one interval with left state (q_l, v_l), right state (q_r, v_r),
// right-acting control u_r, timestep h and stacked multipliers λ it computes
//
//	r_q = q_r − q_l − v_r·h
//	r_v = M(q_r,v_r)(v_r − v_l) − (B·u_r + Σⱼ fⱼ(q_r, λ⁽ʲ⁾) − c(q_r,v_r))·h
//
// with every dynamics quantity evaluated at the right state. The residual is
// exact: the full nonlinear mass matrix and bias term are recomputed on every
// call. An equality binding drives both components to zero.
//
// The multiplier vector concatenates one slice per registered force
// evaluator, in registration order. Evaluators must all be registered before
// the first evaluation; the list is sealed afterwards.
type DirectTranscriptionConstraint[S multibody.Scalar[S]] struct {
	engine     multibody.Engine[S]
	helper     *KinematicsCacheWithVHelper[S]
	evaluators []GeneralizedConstraintForceEvaluator[S]

	numMultipliers int
	sealed         bool
}

// NewDirectTranscriptionConstraint returns a residual over the engine with no
// force evaluators registered yet. The helper is shared with the caller so
// that kinematics computed here can be reused by other terms bound to the
// same interval.
func NewDirectTranscriptionConstraint[S multibody.Scalar[S]](
	engine multibody.Engine[S],
	helper *KinematicsCacheWithVHelper[S],
) (*DirectTranscriptionConstraint[S], error) {
	if helper == nil {
		return nil, errNilCacheHelper
	}
	return &DirectTranscriptionConstraint[S]{engine: engine, helper: helper}, nil
}

// AddGeneralizedConstraintForceEvaluator appends a force contribution. Its
// multiplier slice lands at the current end of the stacked multiplier vector.
// Adding after the first evaluation is a sequencing error.
func (c *DirectTranscriptionConstraint[S]) AddGeneralizedConstraintForceEvaluator(e GeneralizedConstraintForceEvaluator[S]) error {
	if c.sealed {
		return errEvaluatorsSealed
	}
	c.evaluators = append(c.evaluators, e)
	c.numMultipliers += e.NumMultipliers()
	return nil
}

// NumMultipliers returns the stacked multiplier length Σⱼ kⱼ.
func (c *DirectTranscriptionConstraint[S]) NumMultipliers() int { return c.numMultipliers }

// NumInputs returns the composite input length 1 + 2nq + 2nv + nu + Σⱼ kⱼ.
func (c *DirectTranscriptionConstraint[S]) NumInputs() int {
	return 1 + 2*c.engine.NumPositions() + 2*c.engine.NumVelocities() + c.engine.NumActuators() + c.numMultipliers
}

// NumOutputs returns the residual length nq + nv.
func (c *DirectTranscriptionConstraint[S]) NumOutputs() int {
	return c.engine.NumPositions() + c.engine.NumVelocities()
}

// CompositeEvalInput concatenates the residual inputs into the wire layout
// [h, q_l, v_l, q_r, v_r, u_r, λ] consumed by Eval. The layout is positional;
// the orchestrator slices decision variables into exactly this shape.
func (c *DirectTranscriptionConstraint[S]) CompositeEvalInput(h S, ql, vl, qr, vr, ur, lambda []S) ([]S, error) {
	nq, nv, nu := c.engine.NumPositions(), c.engine.NumVelocities(), c.engine.NumActuators()
	for _, part := range []struct {
		name string
		want int
		got  int
	}{
		{"left configuration", nq, len(ql)},
		{"left velocity", nv, len(vl)},
		{"right configuration", nq, len(qr)},
		{"right velocity", nv, len(vr)},
		{"right control", nu, len(ur)},
		{"constraint force multipliers", c.numMultipliers, len(lambda)},
	} {
		if part.got != part.want {
			return nil, multibody.NewDimensionMismatchError(part.name, part.want, part.got)
		}
	}
	x := make([]S, 0, c.NumInputs())
	x = append(x, h)
	x = append(x, ql...)
	x = append(x, vl...)
	x = append(x, qr...)
	x = append(x, vr...)
	x = append(x, ur...)
	x = append(x, lambda...)
	return x, nil
}

// Eval computes [r_q; r_v] from a composite input vector. The first call
// seals the evaluator list.
func (c *DirectTranscriptionConstraint[S]) Eval(x []S) ([]S, error) {
	if len(x) != c.NumInputs() {
		return nil, multibody.NewDimensionMismatchError("composite residual input", c.NumInputs(), len(x))
	}
	c.sealed = true

	nq, nv, nu := c.engine.NumPositions(), c.engine.NumVelocities(), c.engine.NumActuators()
	h := x[0]
	at := 1
	ql := x[at : at+nq]
	at += nq
	vl := x[at : at+nv]
	at += nv
	qr := x[at : at+nq]
	at += nq
	vr := x[at : at+nv]
	at += nv
	ur := x[at : at+nu]
	at += nu
	lambda := x[at:]

	out := make([]S, 0, c.NumOutputs())
	for i := 0; i < nq; i++ {
		out = append(out, qr[i].Sub(ql[i]).Sub(vr[i].Mul(h)))
	}

	kin, err := c.helper.UpdateKinematics(qr, vr)
	if err != nil {
		return nil, err
	}
	massMatrix, err := c.engine.MassMatrix(kin)
	if err != nil {
		return nil, err
	}
	bias, err := c.engine.DynamicsBiasTerm(kin)
	if err != nil {
		return nil, err
	}

	// Net generalized force B·u_r + Σⱼ fⱼ − c, assembled additively.
	force := make([]S, nv)
	b := c.engine.ActuatorSelectionMatrix()
	for i := 0; i < nv; i++ {
		acc := bias[i].Scale(-1)
		for j := 0; j < nu; j++ {
			acc = acc.Add(ur[j].Scale(b.At(i, j)))
		}
		force[i] = acc
	}
	at = 0
	for _, e := range c.evaluators {
		k := e.NumMultipliers()
		f, err := e.EvaluateGeneralizedForce(qr, lambda[at:at+k])
		if err != nil {
			return nil, err
		}
		if len(f) != nv {
			return nil, multibody.NewDimensionMismatchError("generalized constraint force", nv, len(f))
		}
		for i := 0; i < nv; i++ {
			force[i] = force[i].Add(f[i])
		}
		at += k
	}

	dv := make([]S, nv)
	for i := 0; i < nv; i++ {
		dv[i] = vr[i].Sub(vl[i])
	}
	mdv, err := massMatrix.MulVec(dv)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nv; i++ {
		out = append(out, mdv[i].Sub(force[i].Mul(h)))
	}
	return out, nil
}
