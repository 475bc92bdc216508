package force

// Parameters of the linear congruential generator (Numerical Recipes).
const (
	lcgA = 1664525
	lcgC = 1013904223
	lcgM = 1 << 32
)

// lcg returns a deterministic source of floats in [0, 1).
func lcg(seed uint32) func() float64 {
	s := seed
	return func() float64 {
		s = lcgA*s + lcgC
		return float64(s) / lcgM
	}
}

// jiggle returns a tiny random offset used to separate coincident particles.
func jiggle(random func() float64) float64 {
	return (random() - 0.5) * 1e-6
}
