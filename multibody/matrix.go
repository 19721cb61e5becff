package multibody

// Matrix is a small dense row-major matrix over a Scalar type. Engines return
// mass matrices and constraint Jacobians through it; gonum's mat package only
// covers float64, and these matrices must flow dual numbers during
// differentiation.
type Matrix[S Scalar[S]] struct {
	rows, cols int
	data       []S
}

// NewMatrix returns a zero rows x cols matrix.
func NewMatrix[S Scalar[S]](rows, cols int) *Matrix[S] {
	return &Matrix[S]{rows: rows, cols: cols, data: make([]S, rows*cols)}
}

// Rows returns the row count.
func (m *Matrix[S]) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix[S]) Cols() int { return m.cols }

// At returns the element at (i, j).
func (m *Matrix[S]) At(i, j int) S { return m.data[i*m.cols+j] }

// Set writes the element at (i, j).
func (m *Matrix[S]) Set(i, j int, v S) { m.data[i*m.cols+j] = v }

// MulVec returns m * x.
func (m *Matrix[S]) MulVec(x []S) ([]S, error) {
	if len(x) != m.cols {
		return nil, NewDimensionMismatchError("matrix-vector product", m.cols, len(x))
	}
	var z S
	out := make([]S, m.rows)
	for i := 0; i < m.rows; i++ {
		acc := z.Const(0)
		for j := 0; j < m.cols; j++ {
			acc = acc.Add(m.At(i, j).Mul(x[j]))
		}
		out[i] = acc
	}
	return out, nil
}

// TransposeMulVec returns mᵀ * x.
func (m *Matrix[S]) TransposeMulVec(x []S) ([]S, error) {
	if len(x) != m.rows {
		return nil, NewDimensionMismatchError("transposed matrix-vector product", m.rows, len(x))
	}
	var z S
	out := make([]S, m.cols)
	for j := 0; j < m.cols; j++ {
		acc := z.Const(0)
		for i := 0; i < m.rows; i++ {
			acc = acc.Add(m.At(i, j).Mul(x[i]))
		}
		out[j] = acc
	}
	return out, nil
}
