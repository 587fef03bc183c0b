package random

// Fixed is a deterministic Source. Chance answers Hit for any p strictly
// between 0 and 1, Between answers Roll (or min when Roll is nil) and Intn
// always picks 0.
type Fixed struct {
	Hit  bool
	Roll func(min, max int64) int64
}

func (f Fixed) Chance(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	default:
		return f.Hit
	}
}

func (f Fixed) Between(min, max int64) int64 {
	if max <= min || f.Roll == nil {
		return min
	}
	v := f.Roll(min, max)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (f Fixed) Intn(int) int { return 0 }
