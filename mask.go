package perplexity

// Mask marks the final trgLen positions of a window as scored. An explicit
// boolean mask avoids reserving a sentinel value that could collide with a
// real token id.
func Mask(length, trgLen int) []bool {
	if trgLen < 0 || trgLen > length {
		panic("target length out of range")
	}

	scored := make([]bool, length)

	for i := length - trgLen; i < length; i++ {
		scored[i] = true
	}

	return scored
}
