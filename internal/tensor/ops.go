package tensor

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	var sum float32
	j := 0
	for ; j+3 < len(a); j += 4 {
		sum += a[j]*b[j] + a[j+1]*b[j+1] + a[j+2]*b[j+2] + a[j+3]*b[j+3]
	}
	for ; j < len(a); j++ {
		sum += a[j] * b[j]
	}
	return sum
}
