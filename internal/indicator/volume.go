package indicator

// VolumeRatio divides the current bar's volume by the mean volume of the
// preceding `period` bars. Requires period+1 bars so the current bar never
// dilutes its own baseline.
func VolumeRatio(volumes []float64, period int) (float64, error) {
	if period <= 0 || len(volumes) < period+1 {
		return 0, ErrInsufficientHistory
	}
	sum := 0.0
	for i := len(volumes) - period - 1; i < len(volumes)-1; i++ {
		sum += volumes[i]
	}
	avg := sum / float64(period)
	if avg <= 0 {
		return 0, ErrInsufficientHistory
	}
	return volumes[len(volumes)-1] / avg, nil
}
