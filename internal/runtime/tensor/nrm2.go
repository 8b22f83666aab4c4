package tensor

import "math"

// Nrm2 returns the Euclidean (L2) norm of a, computed as sqrt(dot(a, a)).
func Nrm2(a []float32) float32 {
	return float32(math.Sqrt(float64(DotProduct(a, a))))
}
