package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// webhookItem is one element of the JSON array posted to a chat-ops or
// gateway endpoint. Body rendering (HTML, Markdown) is the receiver's
// concern; the engine ships structured fields only.
type webhookItem struct {
	ID        string         `json:"id"`
	EventKind string         `json:"event_kind"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"`
	Recipient string         `json:"recipient,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// WebhookSender delivers a batch by POSTing it as a JSON array to a fixed
// URL. Used for the chat channels and the email gateway; the target URL is
// injected from config so tests can point at a local mock.
type WebhookSender struct {
	url        string
	httpClient *http.Client
}

func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendBatch posts the batch and accepts any 2xx response.
func (s *WebhookSender) SendBatch(ctx context.Context, batch []domain.Notification) error {
	items := make([]webhookItem, len(batch))
	for i, n := range batch {
		items[i] = webhookItem{
			ID:        n.ID,
			EventKind: string(n.EventKind),
			Title:     n.Title,
			Message:   n.Message,
			Priority:  n.Priority.String(),
			Recipient: n.RecipientKey,
			Metadata:  n.Metadata,
			CreatedAt: n.CreatedAt,
		}
	}

	body, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected webhook status: %d", resp.StatusCode)
	}
	return nil
}

var _ ChannelSender = (*WebhookSender)(nil)
