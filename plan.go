package perplexity

import "fmt"

// Window is a half-open span [Begin, End) of the token sequence. TrgLen
// counts the trailing positions not already covered by the previous window;
// the leading End-Begin-TrgLen positions serve as context only.
type Window struct {
	Begin  int
	End    int
	TrgLen int
}

// Plan tiles [0, seqLen) with strided windows of at most maxLength tokens.
// The TrgLen sum over all windows equals seqLen exactly: every token is
// scored by exactly one window.
func Plan(seqLen, maxLength, stride int) ([]Window, error) {
	if seqLen < 1 {
		return nil, fmt.Errorf("%w: empty token sequence", ErrInvalidConfig)
	}

	if maxLength < 1 {
		return nil, fmt.Errorf("%w: max length %d", ErrInvalidConfig, maxLength)
	}

	if stride < 1 || stride > maxLength {
		return nil, fmt.Errorf("%w: stride %d with max length %d", ErrInvalidConfig, stride, maxLength)
	}

	windows := make([]Window, 0, (seqLen+stride-1)/stride)

	prevEnd := 0

	for begin := 0; begin < seqLen; begin += stride {
		end := min(begin+maxLength, seqLen)

		windows = append(windows, Window{
			Begin:  begin,
			End:    end,
			TrgLen: end - prevEnd,
		})

		prevEnd = end

		if end == seqLen {
			break
		}
	}

	return windows, nil
}
