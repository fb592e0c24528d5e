package usage

// ComputeCost applies the rate table's literal formula: cost is the
// sum of each token bucket's count, in thousands, times its per-1000-token
// rate. Plain float64 arithmetic is used throughout (no
// shopspring/decimal), rounding only at the JSON-display boundary — the
// store's own columns hold the full-precision float.
func ComputeCost(inputTokens, outputTokens int64, inputRate, outputRate float64) float64 {
	return float64(inputTokens)/1000*inputRate + float64(outputTokens)/1000*outputRate
}
