package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// ChannelLimiters holds one token bucket per delivery channel, throttling the
// router's outbound send rate independently of the per-recipient gate.
// Burst is set equal to the rate so no extra burst capacity is allowed beyond
// the configured per-second maximum.
type ChannelLimiters struct {
	limiters map[domain.Channel]*rate.Limiter
}

// NewChannelLimiters creates limiters with ratePerSec tokens per second per channel.
func NewChannelLimiters(ratePerSec int) *ChannelLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec

	return &ChannelLimiters{
		limiters: map[domain.Channel]*rate.Limiter{
			domain.ChannelInApp:         rate.NewLimiter(r, burst),
			domain.ChannelEmail:         rate.NewLimiter(r, burst),
			domain.ChannelChatPrimary:   rate.NewLimiter(r, burst),
			domain.ChannelChatSecondary: rate.NewLimiter(r, burst),
		},
	}
}

// Wait blocks until the channel's limiter grants a token. Called by the
// router immediately before handing a sub-batch to the sender. Returns a
// non-nil error only if ctx is cancelled while waiting.
func (cl *ChannelLimiters) Wait(ctx context.Context, ch domain.Channel) error {
	lim, ok := cl.limiters[ch]
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}
