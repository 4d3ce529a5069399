// Package corpus turns text files into token sequences for evaluation.
package corpus

import (
	"bufio"
	"fmt"

	"github.com/jonasknobloch/mbpe"

	"go.jknobloc.com/x/perplexity"
)

// Tokens reads name line by line and tokenizes it into a single ordered
// sequence. Lines keep their trailing newline so the token stream matches
// the original document.
func Tokens(name string, t perplexity.Tokenizer) ([]int64, error) {
	tokens := make([]int64, 0)

	if err := mbpe.FromFile(name, func(scanner *bufio.Scanner) error {
		for scanner.Scan() {
			line := scanner.Text() + "\n"

			ids, err := t.Tokenize(line)

			if err != nil {
				return fmt.Errorf("%w: %w", perplexity.ErrTokenize, err)
			}

			tokens = append(tokens, ids...)
		}

		return scanner.Err()
	}); err != nil {
		return nil, err
	}

	return tokens, nil
}
