package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// ThrottledProvider spaces calls to a provider with a token bucket so a
// shared account's requests-per-minute quota is respected.
type ThrottledProvider struct {
	Provider
	bucket *rate.Limiter
}

// Throttle caps p at rpm requests per minute with a burst of a tenth of
// that. rpm <= 0 returns p unchanged.
func Throttle(p Provider, rpm int) Provider {
	if rpm <= 0 {
		return p
	}
	return &ThrottledProvider{
		Provider: p,
		bucket:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), max(1, rpm/10)),
	}
}

func (t *ThrottledProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := t.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return t.Provider.Complete(ctx, req)
}
