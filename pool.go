package perplexity

type pool[T any] struct {
	free chan T
}

func newPool[T any](items ...T) *pool[T] {
	p := &pool[T]{
		free: make(chan T, len(items)),
	}

	for _, item := range items {
		p.free <- item
	}

	return p
}

func (p *pool[T]) Len() int {
	return cap(p.free)
}

func (p *pool[T]) Acquire() T {
	return <-p.free
}

func (p *pool[T]) Release(item T) {
	p.free <- item
}
