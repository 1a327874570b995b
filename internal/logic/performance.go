package logic

// CalculateECPM returns the effective cost per thousand impressions.
// Zero impressions yield 0.
func CalculateECPM(revenue float64, impressions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return revenue / float64(impressions) * 1000
}

// CalculateCTR returns the click-through rate as a percentage.
// Zero impressions yield 0.
func CalculateCTR(clicks, impressions int64) float64 {
	if impressions <= 0 {
		return 0
	}
	return float64(clicks) / float64(impressions) * 100
}
