package index

import "math"

// NormalizeVector returns a unit-length copy of v. Storing normalized
// vectors lets similarity scans use a plain dot product as the cosine
// score. A zero or empty vector normalizes to itself.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := float32(math.Sqrt(sumSquares))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}
