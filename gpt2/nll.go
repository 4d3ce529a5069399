package gpt2

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// NegLogLikelihood averages per-token NLL over the scored positions of a
// window. Logits at position i-1 predict the token at position i; position 0
// has no preceding prediction and never contributes, matching the
// autoregressive shift.
func NegLogLikelihood(logits [][]float32, window []int64, scored []bool) (float64, error) {
	if len(logits) != len(window) || len(window) != len(scored) {
		return 0, errors.New("mismatched input lengths")
	}

	total := float64(0)
	count := 0

	for i := 1; i < len(window); i++ {
		if !scored[i] {
			continue
		}

		row := logits[i-1]
		target := window[i]

		if target < 0 || target >= int64(len(row)) {
			return 0, fmt.Errorf("target %d outside vocabulary", target)
		}

		maxLogit := float64(slices.Max(row))

		sumExp := float64(0)

		for _, v := range row {
			sumExp += math.Exp(float64(v) - maxLogit)
		}

		logSumExp := maxLogit + math.Log(sumExp)

		total -= float64(row[target]) - logSumExp

		count++
	}

	if count == 0 {
		return 0, errors.New("no scored positions")
	}

	return total / float64(count), nil
}
