package domain

import "time"

// Channel is a delivery medium for a notification. Each channel is backed by
// an external sender registered at startup.
type Channel string

const (
	ChannelInApp         Channel = "in-app"
	ChannelEmail         Channel = "email"
	ChannelChatPrimary   Channel = "chat-primary"
	ChannelChatSecondary Channel = "chat-secondary"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelChatPrimary, ChannelChatSecondary:
		return true
	}
	return false
}

// Priority is an integer scale; higher values are delivered first and admit
// more frequently through the per-recipient rate limiter.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 2
	PriorityHigh     Priority = 3
	PriorityUrgent   Priority = 4
	PriorityCritical Priority = 5
)

func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	case PriorityCritical:
		return "critical"
	}
	return "unknown"
}

// EventKind tags the domain event a notification originated from.
type EventKind string

const (
	EventProposalCreated   EventKind = "proposal_created"
	EventProposalSubmitted EventKind = "proposal_submitted"
	EventProposalApproved  EventKind = "proposal_approved"
	EventProposalRejected  EventKind = "proposal_rejected"
	EventDraftReady        EventKind = "draft_ready"
	EventComplianceAlert   EventKind = "compliance_alert"
	EventDeadlineAlert     EventKind = "deadline_alert"
	EventEscalation        EventKind = "escalation"
	EventReviewRequested   EventKind = "review_requested"
)

// Metadata keys written by the prioritizer when a rule adjusts a notification.
const (
	MetaPrioritizationReason = "prioritizationReason"
	MetaOriginalPriority     = "originalPriority"
)

// Notification is the unit of work flowing through the dispatch engine:
// classified from an event, priority-adjusted, rate-limit gated, batched,
// and fanned out to every channel in Channels.
type Notification struct {
	ID        string    `json:"id"`
	EventKind EventKind `json:"event_kind"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  Priority  `json:"priority"`
	Channels  []Channel `json:"channels"`
	// RecipientKey identifies the human the notification is for; it is the
	// rate-limiting identity. Empty means rate limiting is skipped.
	RecipientKey string         `json:"recipient_key,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy; the prioritizer mutates the copy, never the
// caller's notification.
func (n Notification) Clone() Notification {
	out := n
	out.Channels = make([]Channel, len(n.Channels))
	copy(out.Channels, n.Channels)
	out.Metadata = make(map[string]any, len(n.Metadata)+2)
	for k, v := range n.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// Payload is the free-form event payload handed to Publish by the
// surrounding application.
type Payload map[string]any

// String returns the payload field as a string, or "Unknown" when the field
// is absent or not a string. Titles and messages must render for any payload.
func (p Payload) String(key string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "Unknown"
}

// Float returns the payload field as a float64 where possible.
func (p Payload) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// FeedEntry is one row of a recipient's in-app notification feed, written by
// the in-app channel sender.
type FeedEntry struct {
	ID           string         `json:"id"`
	RecipientKey string         `json:"recipient_key"`
	EventKind    EventKind      `json:"event_kind"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Priority     Priority       `json:"priority"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Read         bool           `json:"read"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Preferences is the per-recipient delivery preference record consumed from
// the external preference store. The zero value allows everything.
type Preferences struct {
	// DisabledChannels the recipient has opted out of.
	DisabledChannels []Channel `json:"disabled_channels,omitempty"`
	// DoNotDisturb suppresses everything below critical priority.
	DoNotDisturb bool `json:"do_not_disturb,omitempty"`
	// QuietHoursStart/End in "15:04" form; equal or empty values disable
	// quiet hours. A window may wrap midnight (e.g. 22:00 to 07:00).
	QuietHoursStart string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string `json:"quiet_hours_end,omitempty"`
}

// Allows reports whether a notification of the given priority may be
// delivered on ch at time now.
func (p Preferences) Allows(ch Channel, prio Priority, now time.Time) bool {
	for _, disabled := range p.DisabledChannels {
		if disabled == ch {
			return false
		}
	}
	// Critical notifications cut through do-not-disturb and quiet hours.
	if prio >= PriorityCritical {
		return true
	}
	if p.DoNotDisturb {
		return false
	}
	return !p.inQuietHours(now)
}

func (p Preferences) inQuietHours(now time.Time) bool {
	if p.QuietHoursStart == "" || p.QuietHoursEnd == "" || p.QuietHoursStart == p.QuietHoursEnd {
		return false
	}
	start, err1 := time.Parse("15:04", p.QuietHoursStart)
	end, err2 := time.Parse("15:04", p.QuietHoursEnd)
	if err1 != nil || err2 != nil {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	if s < e {
		return cur >= s && cur < e
	}
	// window wraps midnight
	return cur >= s || cur < e
}
