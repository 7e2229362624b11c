package repository

import (
	"context"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// FeedRepository persists the in-app notification feed, the one channel
// whose sender is implemented in-repo. The pgx implementation is in
// pg_feed_repo.go; tests use a hand-written mock (mock_feed_repo.go).
type FeedRepository interface {
	InsertBatch(ctx context.Context, entries []domain.FeedEntry) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.FeedEntry, error)
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
	UnreadCount(ctx context.Context, recipient string) (int64, error)
}
