package perplexity

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Evaluator scores windows concurrently across a pool of scorers, one
// in-flight window per scorer. Windows are independent once the plan is
// known; each worker writes its window's weighted NLL into a fixed slot and
// the slots are reduced at the end, so the result does not depend on
// completion order.
type Evaluator struct {
	mutex     sync.Mutex
	scorers   []Scorer
	progress  func(done int)
	maxLength int
	stride    int
	done      int
}

func NewEvaluator(maxLength, stride int) *Evaluator {
	return &Evaluator{
		scorers:   make([]Scorer, 0),
		maxLength: maxLength,
		stride:    stride,
	}
}

func (e *Evaluator) AddScorer(scorer Scorer) {
	e.scorers = append(e.scorers, scorer)
}

// SetProgress registers a callback invoked with the number of completed
// windows. Calls are serialized.
func (e *Evaluator) SetProgress(progress func(done int)) {
	e.progress = progress
}

// Perplexity computes corpus perplexity over tokens. Any window failure
// aborts the whole run; a partial estimate is never returned.
func (e *Evaluator) Perplexity(ctx context.Context, tokens []int64) (float64, error) {
	if len(e.scorers) == 0 {
		return 0, fmt.Errorf("%w: no scorers", ErrInvalidConfig)
	}

	windows, err := Plan(len(tokens), e.maxLength, e.stride)

	if err != nil {
		return 0, err
	}

	weighted := make([]float64, len(windows))

	scorers := newPool(e.scorers...)

	g, ctx := errgroup.WithContext(ctx)

	g.SetLimit(scorers.Len())

	e.done = 0

	for i, w := range windows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			s := scorers.Acquire()

			avg, err := s.Score(tokens[w.Begin:w.End], Mask(w.End-w.Begin, w.TrgLen))

			scorers.Release(s)

			if err != nil {
				return fmt.Errorf("%w: window [%d:%d): %w", ErrScoring, w.Begin, w.End, err)
			}

			weighted[i] = avg * float64(w.TrgLen)

			e.mutex.Lock()

			e.done++

			if e.progress != nil {
				e.progress(e.done)
			}

			e.mutex.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	return math.Exp(floats.Sum(weighted) / float64(len(tokens))), nil
}
