// Package multibody defines the numeric and dynamics-engine interfaces that the
// trajectory optimizer evaluates through. Residuals are differentiated by
// re-running the same computation on a forward-mode dual scalar, so everything
// downstream of an Engine is generic over the Scalar type.
package multibody

import (
	"math"

	"gonum.org/v1/gonum/num/dual"
)

// Scalar is the arithmetic needed to evaluate multibody dynamics. It is
// implemented by Real (a plain float64) and Dual (a forward-mode dual number),
// which lets the same evaluation code produce either values or exact
// derivatives.
type Scalar[S any] interface {
	Add(S) S
	Sub(S) S
	Mul(S) S
	// Scale multiplies by a plain constant.
	Scale(float64) S
	Sin() S
	Cos() S
	// Value returns the real part.
	Value() float64
	// Same reports exact structural equality, including any derivative part.
	// No tolerance; used for cache invalidation.
	Same(S) bool
	// Const lifts a plain constant into this scalar type. The receiver is
	// only used to select the type.
	Const(float64) S
}

// Real is the plain scalar.
type Real float64

// Add returns r + o.
func (r Real) Add(o Real) Real { return r + o }

// Sub returns r - o.
func (r Real) Sub(o Real) Real { return r - o }

// Mul returns r * o.
func (r Real) Mul(o Real) Real { return r * o }

// Scale returns r * f.
func (r Real) Scale(f float64) Real { return r * Real(f) }

// Sin returns sin(r).
func (r Real) Sin() Real { return Real(math.Sin(float64(r))) }

// Cos returns cos(r).
func (r Real) Cos() Real { return Real(math.Cos(float64(r))) }

// Value returns r as a float64.
func (r Real) Value() float64 { return float64(r) }

// Same reports exact equality.
func (r Real) Same(o Real) bool { return r == o }

// Const lifts v to a Real.
func (Real) Const(v float64) Real { return Real(v) }

// Dual is the forward-mode scalar, carrying one derivative direction in its
// Emag part. The arithmetic itself comes from gonum's dual-number package.
type Dual dual.Number

// Add returns d + o.
func (d Dual) Add(o Dual) Dual { return Dual(dual.Add(dual.Number(d), dual.Number(o))) }

// Sub returns d - o.
func (d Dual) Sub(o Dual) Dual { return Dual(dual.Sub(dual.Number(d), dual.Number(o))) }

// Mul returns d * o.
func (d Dual) Mul(o Dual) Dual { return Dual(dual.Mul(dual.Number(d), dual.Number(o))) }

// Scale returns d * f.
func (d Dual) Scale(f float64) Dual { return Dual(dual.Scale(f, dual.Number(d))) }

// Sin returns sin(d).
func (d Dual) Sin() Dual { return Dual(dual.Sin(dual.Number(d))) }

// Cos returns cos(d).
func (d Dual) Cos() Dual { return Dual(dual.Cos(dual.Number(d))) }

// Value returns the real part.
func (d Dual) Value() float64 { return d.Real }

// Deriv returns the derivative part.
func (d Dual) Deriv() float64 { return d.Emag }

// Same reports exact equality of both the real and derivative parts.
func (d Dual) Same(o Dual) bool { return d == o }

// Const lifts v to a Dual with zero derivative.
func (Dual) Const(v float64) Dual { return Dual{Real: v} }

// Constants lifts a float64 slice into a scalar slice with zero derivatives.
func Constants[S Scalar[S]](vals []float64) []S {
	var z S
	out := make([]S, len(vals))
	for i, v := range vals {
		out[i] = z.Const(v)
	}
	return out
}

// Values extracts the real parts of a scalar slice.
func Values[S Scalar[S]](xs []S) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.Value()
	}
	return out
}

// Seed lifts vals into duals with the derivative direction set to the i-th
// coordinate, i.e. the result differentiates with respect to vals[i].
func Seed(vals []float64, i int) []Dual {
	out := make([]Dual, len(vals))
	for j, v := range vals {
		out[j] = Dual{Real: v}
	}
	out[i].Emag = 1
	return out
}
