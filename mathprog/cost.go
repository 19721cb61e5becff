package mathprog

// SumSquaresCost is the weighted quadratic cost w·Σᵢ xᵢ².
type SumSquaresCost struct {
	Weight float64
}

// Eval implements Cost.
func (c *SumSquaresCost) Eval(x, grad []float64) (float64, error) {
	sum := 0.
	for i, xi := range x {
		sum += xi * xi
		if grad != nil {
			grad[i] = 2 * c.Weight * xi
		}
	}
	return c.Weight * sum, nil
}

// LinearCost is the linear cost aᵀx.
type LinearCost struct {
	A []float64
}

// Eval implements Cost.
func (c *LinearCost) Eval(x, grad []float64) (float64, error) {
	if len(x) != len(c.A) {
		return 0, newValueSizeError(len(c.A), len(x))
	}
	sum := 0.
	for i, xi := range x {
		sum += c.A[i] * xi
		if grad != nil {
			grad[i] = c.A[i]
		}
	}
	return sum, nil
}
