package budget

import "encoding/json"

// CostFunc returns the estimated token cost of the item at index i.
type CostFunc func(i int) int

// FixedCost returns a CostFunc that charges the same cost for every item.
func FixedCost(cost int) CostFunc {
	return func(int) int { return cost }
}

// MeasureJSONSize returns the approximate byte size of a value when JSON-encoded
func MeasureJSONSize(v interface{}) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(data)
}

// EstimateTokens converts a JSON byte count to a rough token count (4 bytes/token)
func EstimateTokens(jsonBytes int) int {
	return jsonBytes / 4
}

// Estimate returns the projected token cost of returning n items on top of a
// fixed base cost. Negative per-item costs count as zero, so the result never
// shrinks as n grows.
func Estimate(n int, perItem CostFunc, base int) int {
	cost := base
	if perItem == nil {
		return cost
	}
	for i := 0; i < n; i++ {
		if c := perItem(i); c > 0 {
			cost += c
		}
	}
	return cost
}

// ItemCosts measures the JSON token cost of every item once up front and
// returns a CostFunc over the measured values. Out-of-range indexes cost zero.
func ItemCosts(items []interface{}) CostFunc {
	costs := make([]int, len(items))
	for i, it := range items {
		costs[i] = EstimateTokens(MeasureJSONSize(it))
	}
	return func(i int) int {
		if i < 0 || i >= len(costs) {
			return 0
		}
		return costs[i]
	}
}

// SampledCost measures up to sample evenly spaced items and charges every item
// the mean of the measurements, rounded up. Cheaper than ItemCosts for large
// uniform result sets; the round-up keeps the estimate from undercounting
// relative to the sampled mean.
func SampledCost(items []interface{}, sample int) CostFunc {
	if len(items) == 0 {
		return FixedCost(0)
	}
	if sample <= 0 || sample > len(items) {
		sample = len(items)
	}
	stride := len(items) / sample
	if stride < 1 {
		stride = 1
	}
	totalBytes := 0
	measured := 0
	for i := 0; i < len(items) && measured < sample; i += stride {
		totalBytes += MeasureJSONSize(items[i])
		measured++
	}
	if measured == 0 || totalBytes == 0 {
		return FixedCost(0)
	}
	perItem := (totalBytes + measured*4 - 1) / (measured * 4)
	return FixedCost(perItem)
}
