// Package tokenizer provides byte-pair tokenizer backends for perplexity
// evaluation.
package tokenizer

import "github.com/jonasknobloch/mbpe"

type MBPE struct {
	model *mbpe.MBPE
}

// NewMBPE loads a GPT-2 style vocabulary and merge list.
func NewMBPE(vocab, merges string) (*MBPE, error) {
	m := mbpe.NewMBPE()

	if err := m.Load(vocab, merges); err != nil {
		return nil, err
	}

	return &MBPE{
		model: m,
	}, nil
}

func (t *MBPE) Tokenize(text string) ([]int64, error) {
	return toInt64(t.model.Tokenize(text)), nil
}
