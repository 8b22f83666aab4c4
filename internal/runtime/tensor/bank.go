package tensor

import "fmt"

// Bank3 is a dense, row-major [N, L, C] float32 tensor: N templates of
// length L on C channels. It backs the Overlap Builder's materialized
// template bank (spec §4.1).
type Bank3 struct {
	n, l, c int
	data    []float32
}

// NewBank3 wraps data as an N x L x C tensor. len(data) must equal n*l*c.
func NewBank3(n, l, c int, data []float32) (*Bank3, error) {
	if n < 0 || l < 0 || c < 0 {
		return nil, fmt.Errorf("tensor: bank dims must be non-negative, got %dx%dx%d", n, l, c)
	}

	if len(data) != n*l*c {
		return nil, fmt.Errorf("tensor: bank data length %d does not match %dx%dx%d", len(data), n, l, c)
	}

	return &Bank3{n: n, l: l, c: c, data: data}, nil
}

// ZerosBank3 creates a zero-initialized N x L x C tensor.
func ZerosBank3(n, l, c int) *Bank3 {
	return &Bank3{n: n, l: l, c: c, data: make([]float32, n*l*c)}
}

func (b *Bank3) N() int { return b.n }
func (b *Bank3) L() int { return b.l }
func (b *Bank3) C() int { return b.c }

// Template returns the flat L*C row for template n. Mutating it mutates
// the bank.
func (b *Bank3) Template(n int) []float32 {
	step := b.l * b.c
	return b.data[n*step : (n+1)*step]
}

// TimeSlice returns, for template n, the [lo, hi) window over the time
// axis flattened to (hi-lo)*C contiguous values. Mutating it mutates the
// bank, since time is the middle, non-innermost axis stored contiguously
// with the channel axis.
func (b *Bank3) TimeSlice(n, lo, hi int) []float32 {
	row := b.Template(n)
	return row[lo*b.c : hi*b.c]
}

// AsMatrix reinterprets the whole bank as an N x (L*C) matrix sharing the
// same storage, one row per template.
func (b *Bank3) AsMatrix() *Matrix {
	return &Matrix{rows: b.n, cols: b.l * b.c, data: b.data}
}

// TimeWindowMatrix returns the [lo, hi) time window of every template as
// an N x ((hi-lo)*C) matrix. lo/hi index into the time axis; the returned
// matrix is a fresh copy since the window is not contiguous across
// templates.
func (b *Bank3) TimeWindowMatrix(lo, hi int) *Matrix {
	width := (hi - lo) * b.c
	out := ZerosMatrix(b.n, width)

	for n := 0; n < b.n; n++ {
		copy(out.Row(n), b.TimeSlice(n, lo, hi))
	}

	return out
}
