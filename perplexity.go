// Package perplexity estimates corpus perplexity of an autoregressive
// language model using a strided sliding-window evaluation. Long token
// sequences are decomposed into overlapping windows bounded by the model's
// context limit; each window's mean negative log-likelihood is weighted by
// the number of newly scored tokens and the weighted sums are combined into
// a single per-token average.
package perplexity

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrScoring       = errors.New("scoring failed")
	ErrTokenize      = errors.New("tokenization failed")
)

// Scorer computes the mean negative log-likelihood of a token window over
// the positions marked in scored. Implementations must reject mismatched
// input lengths and must not credit positions outside the mask.
type Scorer interface {
	Score(window []int64, scored []bool) (float64, error)
}

// Tokenizer converts text into an ordered token id sequence. Must be
// deterministic for a fixed vocabulary.
type Tokenizer interface {
	Tokenize(text string) ([]int64, error)
}

type Estimator struct {
	scorer    Scorer
	maxLength int
	stride    int
}

func NewEstimator(scorer Scorer, maxLength, stride int) *Estimator {
	return &Estimator{
		scorer:    scorer,
		maxLength: maxLength,
		stride:    stride,
	}
}

// Estimate folds over the window plan in order, weighting each window's mean
// NLL by its newly scored token count. Any scorer failure aborts the run; a
// partial estimate over an incomplete corpus is never returned.
func (e *Estimator) Estimate(tokens []int64) (float64, error) {
	windows, err := Plan(len(tokens), e.maxLength, e.stride)

	if err != nil {
		return 0, err
	}

	total := float64(0)

	for _, w := range windows {
		avg, err := e.scorer.Score(tokens[w.Begin:w.End], Mask(w.End-w.Begin, w.TrgLen))

		if err != nil {
			return 0, fmt.Errorf("%w: window [%d:%d): %w", ErrScoring, w.Begin, w.End, err)
		}

		total += avg * float64(w.TrgLen)
	}

	return math.Exp(total / float64(len(tokens))), nil
}
