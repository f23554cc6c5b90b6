package patterns

// ArgMax returns the index of the first maximum of values[lo:hi], or -1 when the range is empty.
func ArgMax(values []float64, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(values) {
		hi = len(values)
	}
	if lo >= hi {
		return -1
	}
	idx := lo
	for i := lo + 1; i < hi; i++ {
		if values[i] > values[idx] {
			idx = i
		}
	}
	return idx
}

// ArgMin returns the index of the first minimum of values[lo:hi], or -1 when the range is empty.
func ArgMin(values []float64, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(values) {
		hi = len(values)
	}
	if lo >= hi {
		return -1
	}
	idx := lo
	for i := lo + 1; i < hi; i++ {
		if values[i] < values[idx] {
			idx = i
		}
	}
	return idx
}

// LocalMinima returns, in chronological order, the indices that are strictly
// lower than every value within radius positions on both sides. Points closer
// than radius to either end never qualify, and ties are not extrema.
func LocalMinima(values []float64, radius int) []int {
	return localExtrema(values, radius, func(center, other float64) bool { return center < other })
}

// LocalMaxima is the mirror of LocalMinima.
func LocalMaxima(values []float64, radius int) []int {
	return localExtrema(values, radius, func(center, other float64) bool { return center > other })
}

func localExtrema(values []float64, radius int, beats func(center, other float64) bool) []int {
	if radius <= 0 {
		return nil
	}
	var idxs []int
	for i := radius; i < len(values)-radius; i++ {
		extreme := true
		for j := 1; j <= radius; j++ {
			if !beats(values[i], values[i-j]) || !beats(values[i], values[i+j]) {
				extreme = false
				break
			}
		}
		if extreme {
			idxs = append(idxs, i)
		}
	}
	return idxs
}
