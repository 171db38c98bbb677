package logits

import (
	"math"
	"slices"
	"sort"
)

// Masked is the value written into entries removed by Filter.
var Masked = float32(math.Inf(-1))

// Filter returns a copy of scores restricted to the top-k / nucleus candidate
// set. Removed entries are set to Masked so they get zero probability after
// softmax. k <= 0 disables top-k and p <= 0 disables top-p; k larger than the
// vocabulary is clamped.
//
// The input slice is never modified.
func Filter(scores []float32, k int, p float32) []float32 {
	out := slices.Clone(scores)
	if len(out) == 0 {
		return out
	}
	if k > 0 {
		topKMask(out, min(k, len(out)))
	}
	if p > 0 {
		topPMask(out, p)
	}
	return out
}

// topKMask masks every entry strictly below the k-th largest value. Entries
// tied with the k-th value survive.
func topKMask(scores []float32, k int) {
	if k >= len(scores) {
		return
	}
	threshold := kthLargest(scores, k)
	for i, v := range scores {
		if v < threshold {
			scores[i] = Masked
		}
	}
}

func kthLargest(scores []float32, k int) float32 {
	sorted := slices.Clone(scores)
	slices.SortFunc(sorted, func(a, b float32) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		default:
			return 0
		}
	})
	return sorted[k-1]
}

// topPMask applies the nucleus rule: walk the distribution in descending
// order and drop every position whose cumulative probability exceeds p, with
// the removal mask shifted right by one so the top entry is always kept.
func topPMask(scores []float32, p float32) {
	order := DescendingOrder(scores)
	probs := Softmax(scores)

	remove := make([]bool, len(order))
	var cum float64
	for pos, idx := range order {
		cum += probs[idx]
		remove[pos] = cum > float64(p)
	}
	// Shift right: position i is removed only if position i-1 already
	// pushed the mass over p.
	for pos := len(remove) - 1; pos > 0; pos-- {
		remove[pos] = remove[pos-1]
	}
	remove[0] = false

	for pos, idx := range order {
		if remove[pos] {
			scores[idx] = Masked
		}
	}
}

// DescendingOrder returns the indices of scores sorted by value, highest
// first. Equal values keep their vocabulary order.
func DescendingOrder(scores []float32) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

// Softmax converts scores to probabilities. Masked entries map to zero. If
// every entry is masked the result is all zeros.
func Softmax(scores []float32) []float64 {
	probs := make([]float64, len(scores))
	maxv := math.Inf(-1)
	for _, v := range scores {
		if float64(v) > maxv {
			maxv = float64(v)
		}
	}
	if math.IsInf(maxv, -1) {
		return probs
	}
	var sum float64
	for i, v := range scores {
		if math.IsInf(float64(v), -1) {
			continue
		}
		e := math.Exp(float64(v) - maxv)
		probs[i] = e
		sum += e
	}
	if sum == 0 {
		return probs
	}
	inv := 1.0 / sum
	for i := range probs {
		probs[i] *= inv
	}
	return probs
}

// Finite reports how many entries of scores survived filtering.
func Finite(scores []float32) int {
	n := 0
	for _, v := range scores {
		if !math.IsInf(float64(v), -1) {
			n++
		}
	}
	return n
}
