package tokenizer

import "github.com/pkoukk/tiktoken-go"

type Tiktoken struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktoken resolves a named tiktoken encoding. r50k_base matches the
// GPT-2 family vocabulary.
func NewTiktoken(name string) (*Tiktoken, error) {
	e, err := tiktoken.GetEncoding(name)

	if err != nil {
		return nil, err
	}

	return &Tiktoken{
		encoding: e,
	}, nil
}

func (t *Tiktoken) Tokenize(text string) ([]int64, error) {
	return toInt64(t.encoding.Encode(text, nil, nil)), nil
}
