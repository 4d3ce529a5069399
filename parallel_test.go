package perplexity

import (
	"context"
	"errors"
	"math"
	"testing"
)

// pureScorer derives the NLL from window content only, so results do not
// depend on scheduling.
type pureScorer struct{}

func (pureScorer) Score(window []int64, scored []bool) (float64, error) {
	total := float64(0)
	count := 0

	for i, v := range window {
		if !scored[i] {
			continue
		}

		total += 1 / float64(v+1)
		count++
	}

	return total / float64(count), nil
}

func TestEvaluatorMatchesSequential(t *testing.T) {
	tokens := sequence(100)

	want, err := NewEstimator(pureScorer{}, 16, 8).Estimate(tokens)

	if err != nil {
		t.Fatal(err)
	}

	e := NewEvaluator(16, 8)

	e.AddScorer(pureScorer{})
	e.AddScorer(pureScorer{})
	e.AddScorer(pureScorer{})

	got, err := e.Perplexity(context.Background(), tokens)

	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(got-want) > 1e-12 {
		t.Errorf("got %f want %f", got, want)
	}
}

func TestEvaluatorProgress(t *testing.T) {
	tokens := sequence(100)

	windows, err := Plan(len(tokens), 16, 8)

	if err != nil {
		t.Fatal(err)
	}

	e := NewEvaluator(16, 8)

	e.AddScorer(pureScorer{})
	e.AddScorer(pureScorer{})

	last := 0

	e.SetProgress(func(done int) {
		if done != last+1 {
			t.Errorf("progress jumped from %d to %d", last, done)
		}

		last = done
	})

	if _, err := e.Perplexity(context.Background(), tokens); err != nil {
		t.Fatal(err)
	}

	if last != len(windows) {
		t.Errorf("reported %d of %d windows", last, len(windows))
	}
}

type failAboveScorer struct {
	limit int64
}

func (s failAboveScorer) Score(window []int64, scored []bool) (float64, error) {
	for _, v := range window {
		if v > s.limit {
			return 0, errors.New("resource exhausted")
		}
	}

	return 1, nil
}

func TestEvaluatorScoringFailed(t *testing.T) {
	e := NewEvaluator(16, 8)

	e.AddScorer(failAboveScorer{limit: 50})
	e.AddScorer(failAboveScorer{limit: 50})

	if _, err := e.Perplexity(context.Background(), sequence(100)); !errors.Is(err, ErrScoring) {
		t.Errorf("expected scoring error, got %v", err)
	}
}

func TestEvaluatorNoScorers(t *testing.T) {
	if _, err := NewEvaluator(16, 8).Perplexity(context.Background(), sequence(10)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected invalid configuration, got %v", err)
	}
}

func TestEvaluatorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cancel()

	e := NewEvaluator(16, 8)

	e.AddScorer(pureScorer{})

	if _, err := e.Perplexity(ctx, sequence(100)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got %v", err)
	}
}
