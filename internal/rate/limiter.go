package rate

import (
	"context"
	"fmt"
	"time"
)

// Limiter gates calls to the mail provider.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket releases a fixed number of tokens per second.
type TokenBucket struct {
	ticker   *time.Ticker
	tokens   chan struct{}
	stop     chan struct{}
	stopDone chan struct{}
}

// NewTokenBucket returns a limiter that releases rps tokens per second.
func NewTokenBucket(rps int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	tb := &TokenBucket{
		ticker:   time.NewTicker(time.Second / time.Duration(rps)),
		tokens:   make(chan struct{}, rps),
		stop:     make(chan struct{}),
		stopDone: make(chan struct{}),
	}
	// first call proceeds immediately
	tb.tokens <- struct{}{}
	go tb.run()
	return tb
}

func (t *TokenBucket) run() {
	defer close(t.stopDone)
	for {
		select {
		case <-t.stop:
			return
		case <-t.ticker.C:
			select {
			case t.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Wait blocks until a token is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-t.tokens:
		return nil
	}
}

// Stop releases resources held by the limiter.
func (t *TokenBucket) Stop() {
	t.ticker.Stop()
	close(t.stop)
	<-t.stopDone
}

// Unlimited never blocks unless the context is already done.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}

var (
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = Unlimited{}
)
