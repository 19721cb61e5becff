// Package trajopt turns continuous-time constrained multibody dynamics into a
// finite nonlinear program by direct transcription: sampled states, controls
// and constraint-force multipliers become decision variables, and backward
// Euler integration of the equations of motion becomes a per-interval
// equality residual. The residual is evaluated generically over the scalar
// type, so the same code path produces values and exact forward-mode
// derivatives for the solver.
package trajopt

import "github.com/DiitsGp/drake/multibody"

// KinematicsCacheHelper memoizes the engine's position kinematics for the
// last configuration seen. Several residual terms evaluate kinematics at the
// same configuration within one solver iteration; the cache makes the repeat
// lookups free. Comparison is exact, so any structural change to the
// configuration (including derivative parts) recomputes.
//
// Not safe for concurrent use; each owner keeps its own helper.
type KinematicsCacheHelper[S multibody.Scalar[S]] struct {
	engine multibody.Engine[S]
	lastQ  []S
	cached multibody.Kinematics[S]
}

// NewKinematicsCacheHelper returns an empty cache over the given engine.
func NewKinematicsCacheHelper[S multibody.Scalar[S]](engine multibody.Engine[S]) *KinematicsCacheHelper[S] {
	return &KinematicsCacheHelper[S]{engine: engine}
}

// UpdateKinematics returns a kinematics solution for q, recomputing only when
// q differs from the cached configuration.
func (h *KinematicsCacheHelper[S]) UpdateKinematics(q []S) (multibody.Kinematics[S], error) {
	if h.cached != nil && sameVector(h.lastQ, q) {
		return h.cached, nil
	}
	kin, err := h.engine.ComputeKinematics(q)
	if err != nil {
		return nil, err
	}
	h.lastQ = append(h.lastQ[:0], q...)
	h.cached = kin
	return kin, nil
}

// KinematicsCacheWithVHelper is the velocity-aware variant, required whenever
// Coriolis terms or other velocity-dependent quantities will be read.
type KinematicsCacheWithVHelper[S multibody.Scalar[S]] struct {
	engine multibody.Engine[S]
	lastQ  []S
	lastV  []S
	cached multibody.Kinematics[S]
}

// NewKinematicsCacheWithVHelper returns an empty cache over the given engine.
func NewKinematicsCacheWithVHelper[S multibody.Scalar[S]](engine multibody.Engine[S]) *KinematicsCacheWithVHelper[S] {
	return &KinematicsCacheWithVHelper[S]{engine: engine}
}

// UpdateKinematics returns a kinematics solution for (q, v), recomputing only
// when either differs from the cached pair.
func (h *KinematicsCacheWithVHelper[S]) UpdateKinematics(q, v []S) (multibody.Kinematics[S], error) {
	if h.cached != nil && sameVector(h.lastQ, q) && sameVector(h.lastV, v) {
		return h.cached, nil
	}
	kin, err := h.engine.ComputeKinematicsWithVelocity(q, v)
	if err != nil {
		return nil, err
	}
	h.lastQ = append(h.lastQ[:0], q...)
	h.lastV = append(h.lastV[:0], v...)
	h.cached = kin
	return kin, nil
}

func sameVector[S multibody.Scalar[S]](a, b []S) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}
