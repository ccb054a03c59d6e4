package mq

import "context"

// TokenLimiter is a counting FetchLimiter.
type TokenLimiter struct {
	tokens chan struct{}
}

// NewTokenLimiter creates a limiter with size tokens, at least one.
func NewTokenLimiter(size int) *TokenLimiter {
	if size <= 0 {
		size = 1
	}
	tokens := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		tokens <- struct{}{}
	}
	return &TokenLimiter{tokens: tokens}
}

// Acquire blocks until a token is free or ctx is done.
func (l *TokenLimiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.tokens:
		return nil
	}
}

// Release returns a token. Releasing more than was acquired is a no-op.
func (l *TokenLimiter) Release() {
	select {
	case l.tokens <- struct{}{}:
	default:
	}
}

// Available reports the number of free tokens.
func (l *TokenLimiter) Available() int {
	return len(l.tokens)
}
