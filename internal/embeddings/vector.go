package embeddings

import "math"

// Normalize scales v to unit L2 length in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) * inv)
	}
	return v
}

// NormalizeAll normalizes every vector in vs in place.
func NormalizeAll(vs [][]float32) [][]float32 {
	for _, v := range vs {
		Normalize(v)
	}
	return vs
}

// Mean returns the element-wise mean of vs. Vectors whose length differs
// from the first are skipped. It returns nil when vs has no usable vector.
func Mean(vs [][]float32) []float32 {
	var (
		dim   int
		sum   []float64
		count int
	)
	for _, v := range vs {
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			dim = len(v)
			sum = make([]float64, dim)
		}
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		count++
	}
	if count == 0 {
		return nil
	}

	out := make([]float32, dim)
	for i, s := range sum {
		out[i] = float32(s / float64(count))
	}
	return out
}
