package collapse

import "math"

// singularDetThreshold is the minimum absolute determinant magnitude
// below which the 4x4 system is treated as singular and the caller
// should fall back to the midpoint policy (spec 4.D).
const singularDetThreshold = 1e-9

// solve4x4 solves A·x = b via Gaussian elimination with partial
// pivoting (a pivoted LU decomposition applied in place, in double
// precision as required by spec 4.D and 9 — single precision routinely
// produces negative errors on near-flat regions).
//
// Returns ok=false if the pivoted matrix is singular (the running
// product of pivots drops below singularDetThreshold in magnitude),
// in which case x is the zero vector and the caller must use the
// midpoint fallback.
func solve4x4(a [4][4]float64, b [4]float64) (x [4]float64, ok bool) {
	const n = 4

	var m [4][5]float64
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			m[r][c] = a[r][c]
		}
		m[r][4] = b[r]
	}

	det := 1.0
	for col := 0; col < n; col++ {
		pivotRow := col
		pivotVal := math.Abs(m[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(m[r][col]); v > pivotVal {
				pivotVal = v
				pivotRow = r
			}
		}
		if pivotRow != col {
			m[col], m[pivotRow] = m[pivotRow], m[col]
			det = -det
		}
		pivot := m[col][col]
		det *= pivot
		if math.Abs(pivot) < 1e-300 {
			// Pivot is exactly (or numerically) zero: further elimination
			// would divide by zero. The matrix is certainly singular.
			return [4]float64{}, false
		}

		for r := col + 1; r < n; r++ {
			factor := m[r][col] / pivot
			if factor == 0 {
				continue
			}
			for c := col; c <= n; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	if math.Abs(det) < singularDetThreshold {
		return [4]float64{}, false
	}

	// Back-substitution.
	for r := n - 1; r >= 0; r-- {
		sum := m[r][n]
		for c := r + 1; c < n; c++ {
			sum -= m[r][c] * x[c]
		}
		x[r] = sum / m[r][r]
	}

	return x, true
}
