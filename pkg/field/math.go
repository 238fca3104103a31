package field

import "math"

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

// length2 is the euclidean length of a 2D value.
func length2(x, y float32) float32 {
	return float32(math.Hypot(float64(x), float64(y)))
}
