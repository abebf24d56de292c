package indicator

type Divergence struct {
	Top    bool `json:"top"`
	Bottom bool `json:"bottom"`
}

// DetectDivergence compares where the price series and a paired indicator
// place their extremes inside the trailing window. A top divergence is
// flagged when the price maximum lands on the most recent bar but the
// indicator's maximum does not; a bottom divergence mirrors that with the
// minima.
func DetectDivergence(prices, paired []float64, window int) (Divergence, error) {
	if window <= 1 || len(prices) < window || len(paired) < window {
		return Divergence{}, ErrInsufficientHistory
	}
	p := prices[len(prices)-window:]
	q := paired[len(paired)-window:]

	last := window - 1
	var div Divergence
	if argMax(p) == last && argMax(q) != last {
		div.Top = true
	}
	if argMin(p) == last && argMin(q) != last {
		div.Bottom = true
	}
	return div, nil
}

func argMax(v []float64) int {
	idx := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[idx] {
			idx = i
		}
	}
	return idx
}

func argMin(v []float64) int {
	idx := 0
	for i := 1; i < len(v); i++ {
		if v[i] < v[idx] {
			idx = i
		}
	}
	return idx
}
