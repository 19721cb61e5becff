package trajopt

import (
	"github.com/DiitsGp/drake/multibody"
)

// transcriptionBinding adapts a dual-typed transcription constraint to the
// program's float64 constraint interface. Values come from a zero-seeded dual
// evaluation; the Jacobian comes from one forward-mode pass per input, which
// keeps derivatives exact through the full nonlinear dynamics.
type transcriptionBinding struct {
	constraint *DirectTranscriptionConstraint[multibody.Dual]
	lb, ub     []float64
}

func newTranscriptionBinding(c *DirectTranscriptionConstraint[multibody.Dual]) *transcriptionBinding {
	zeros := make([]float64, c.NumOutputs())
	return &transcriptionBinding{constraint: c, lb: zeros, ub: zeros}
}

func (b *transcriptionBinding) NumOutputs() int { return b.constraint.NumOutputs() }

// Bounds binds the residual to zero on both sides; the constraint is an
// equality.
func (b *transcriptionBinding) Bounds() (lb, ub []float64) { return b.lb, b.ub }

func (b *transcriptionBinding) Eval(x, out []float64) error {
	y, err := b.constraint.Eval(multibody.Constants[multibody.Dual](x))
	if err != nil {
		return err
	}
	for i, yi := range y {
		out[i] = yi.Value()
	}
	return nil
}

func (b *transcriptionBinding) EvalWithJacobian(x, out, jac []float64) error {
	n := len(x)
	for j := 0; j < n; j++ {
		y, err := b.constraint.Eval(multibody.Seed(x, j))
		if err != nil {
			return err
		}
		for i, yi := range y {
			if j == 0 {
				out[i] = yi.Value()
			}
			jac[i*n+j] = yi.Deriv()
		}
	}
	return nil
}
