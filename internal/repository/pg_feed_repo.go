package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

type pgFeedRepository struct {
	pool *pgxpool.Pool
}

// NewPgFeedRepository returns a FeedRepository backed by PostgreSQL.
func NewPgFeedRepository(pool *pgxpool.Pool) FeedRepository {
	return &pgFeedRepository{pool: pool}
}

func (r *pgFeedRepository) InsertBatch(ctx context.Context, entries []domain.FeedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		batch.Queue(`
			INSERT INTO notification_feed
				(id, recipient_key, event_kind, title, message, priority, metadata, read, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.ID, e.RecipientKey, e.EventKind, e.Title, e.Message,
			int(e.Priority), meta, e.Read, e.CreatedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert feed entry: %w", err)
		}
	}
	return nil
}

func (r *pgFeedRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.FeedEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_key, event_kind, title, message, priority, metadata, read, created_at
		FROM notification_feed
		WHERE recipient_key = $1
		ORDER BY created_at DESC
		LIMIT $2`, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	defer rows.Close()

	var entries []domain.FeedEntry
	for rows.Next() {
		e, err := scanFeedEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgFeedRepository) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_feed SET read = TRUE
		WHERE recipient_key = $1 AND read = FALSE`, recipient)
	if err != nil {
		return 0, fmt.Errorf("mark feed read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgFeedRepository) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notification_feed
		WHERE recipient_key = $1 AND read = FALSE`, recipient).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func scanFeedEntry(row pgx.Row) (domain.FeedEntry, error) {
	var (
		e        domain.FeedEntry
		priority int
		meta     []byte
	)
	err := row.Scan(&e.ID, &e.RecipientKey, &e.EventKind, &e.Title, &e.Message,
		&priority, &meta, &e.Read, &e.CreatedAt)
	if err != nil {
		return domain.FeedEntry{}, fmt.Errorf("scan feed entry: %w", err)
	}
	e.Priority = domain.Priority(priority)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return domain.FeedEntry{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return e, nil
}
