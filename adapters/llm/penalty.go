package llm

// frequencyPenalty maps a multiplicative repetition penalty (1 means none) onto the
// additive frequency penalty of hosted chat APIs, clamped to their [-2, 2] range.
func frequencyPenalty(repetitionPenalty float64) float64 {
	p := repetitionPenalty - 1
	if p > 2 {
		return 2
	}
	if p < -2 {
		return -2
	}
	return p
}
