package sender

import (
	"context"
	"fmt"

	"github.com/proposalhub/notify-fabric/internal/domain"
	"github.com/proposalhub/notify-fabric/internal/repository"
)

// InAppSender appends each notification to the recipient's persisted feed.
// Notifications without a recipient are broadcast records; they are stored
// under an empty recipient key and surfaced by dashboard queries, not the
// per-user feed.
type InAppSender struct {
	repo repository.FeedRepository
}

func NewInAppSender(repo repository.FeedRepository) *InAppSender {
	return &InAppSender{repo: repo}
}

func (s *InAppSender) SendBatch(ctx context.Context, batch []domain.Notification) error {
	entries := make([]domain.FeedEntry, len(batch))
	for i, n := range batch {
		entries[i] = domain.FeedEntry{
			ID:           n.ID,
			RecipientKey: n.RecipientKey,
			EventKind:    n.EventKind,
			Title:        n.Title,
			Message:      n.Message,
			Priority:     n.Priority,
			Metadata:     n.Metadata,
			CreatedAt:    n.CreatedAt,
		}
	}
	if err := s.repo.InsertBatch(ctx, entries); err != nil {
		return fmt.Errorf("persist feed batch: %w", err)
	}
	return nil
}

var _ ChannelSender = (*InAppSender)(nil)
