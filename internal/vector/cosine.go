package vector

import "math"

// cosineDistance returns 1 - cosine similarity. Mismatched or zero
// vectors score as maximally distant rather than erroring; they can
// only arise from mixing embedding models, which collection naming
// already prevents.
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
