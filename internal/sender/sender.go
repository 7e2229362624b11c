package sender

import (
	"context"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// ChannelSender delivers one channel's priority-ordered sub-batch. A sender
// may aggregate several notifications for the same recipient into a single
// delivery unit; that policy is the sender's own business. Errors are
// reported to the router, which logs them and carries on; a failing sender
// never blocks sibling channels.
type ChannelSender interface {
	SendBatch(ctx context.Context, batch []domain.Notification) error
}

// Func adapts a plain function to ChannelSender.
type Func func(ctx context.Context, batch []domain.Notification) error

func (f Func) SendBatch(ctx context.Context, batch []domain.Notification) error {
	return f(ctx, batch)
}
