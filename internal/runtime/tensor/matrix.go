package tensor

import "fmt"

// Matrix is a dense, row-major float32 matrix.
type Matrix struct {
	rows, cols int
	data       []float32
}

// NewMatrix wraps data as a rows x cols matrix. len(data) must equal
// rows*cols.
func NewMatrix(rows, cols int, data []float32) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("tensor: matrix dims must be non-negative, got %dx%d", rows, cols)
	}

	if len(data) != rows*cols {
		return nil, fmt.Errorf("tensor: matrix data length %d does not match %dx%d", len(data), rows, cols)
	}

	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// ZerosMatrix creates a zero-initialized rows x cols matrix.
func ZerosMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// Row returns a slice view onto row i. Mutating it mutates the matrix.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.cols+j]
}

func (m *Matrix) Set(i, j int, v float32) {
	m.data[i*m.cols+j] = v
}

// RawData returns the underlying row-major storage.
func (m *Matrix) RawData() []float32 { return m.data }

// RowGram computes G[i][j] = dot(a.Row(i), b.Row(j)) for all i, j, i.e. the
// cross-Gram matrix between the rows of a and the rows of b. a and b must
// have the same column count. This is the core primitive behind the
// Overlap Builder's per-lag cross-correlation (spec §4.1).
func RowGram(a, b *Matrix) (*Matrix, error) {
	if a.cols != b.cols {
		return nil, fmt.Errorf("tensor: RowGram column mismatch %d vs %d", a.cols, b.cols)
	}

	out := ZerosMatrix(a.rows, b.rows)

	for i := 0; i < a.rows; i++ {
		ai := a.Row(i)

		for j := 0; j < b.rows; j++ {
			out.Set(i, j, DotProduct(ai, b.Row(j)))
		}
	}

	return out, nil
}
