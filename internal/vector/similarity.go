package vector

import "math"

// InnerProduct returns the dot product of a and b, or 0 when the lengths differ.
// Stored vectors are unit length, so this is their cosine similarity.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i, v := range a {
		dot += float64(v) * float64(b[i])
	}
	return dot
}

// Cosine returns the cosine similarity of two vectors of any length scale.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
