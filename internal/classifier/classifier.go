package classifier

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// entry is the fixed classification for one event kind: base priority and
// channel set are a lookup, never computed.
type entry struct {
	priority  domain.Priority
	channels  []domain.Channel
	recipient string // payload field holding the rate-limit identity
	title     func(domain.Payload) string
	message   func(domain.Payload) string
}

// catalog maps every recognized event kind to its classification.
var catalog = map[domain.EventKind]entry{
	domain.EventProposalCreated: {
		priority:  domain.PriorityMedium,
		channels:  []domain.Channel{domain.ChannelInApp, domain.ChannelEmail},
		recipient: "assignedTo",
		title:     func(domain.Payload) string { return "New Proposal Created" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("Proposal %q was created by %s.", p.String("title"), p.String("createdBy"))
		},
	},
	domain.EventProposalSubmitted: {
		priority:  domain.PriorityHigh,
		channels:  []domain.Channel{domain.ChannelInApp, domain.ChannelEmail, domain.ChannelChatPrimary},
		recipient: "assignedTo",
		title:     func(domain.Payload) string { return "Proposal Submitted" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("Proposal %q was submitted to %s.", p.String("title"), p.String("clientName"))
		},
	},
	domain.EventProposalApproved: {
		priority:  domain.PriorityHigh,
		channels:  []domain.Channel{domain.ChannelInApp, domain.ChannelEmail, domain.ChannelChatPrimary},
		recipient: "assignedTo",
		title:     func(domain.Payload) string { return "Proposal Approved" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("Proposal %q was approved by %s.", p.String("title"), p.String("approvedBy"))
		},
	},
	domain.EventProposalRejected: {
		priority:  domain.PriorityHigh,
		channels:  []domain.Channel{domain.ChannelInApp, domain.ChannelEmail},
		recipient: "assignedTo",
		title:     func(domain.Payload) string { return "Proposal Rejected" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("Proposal %q was rejected: %s", p.String("title"), p.String("reason"))
		},
	},
	domain.EventDraftReady: {
		priority:  domain.PriorityMedium,
		channels:  []domain.Channel{domain.ChannelInApp},
		recipient: "assignedTo",
		title:     func(domain.Payload) string { return "Draft Ready for Review" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("A generated draft for proposal %q is ready.", p.String("title"))
		},
	},
	domain.EventComplianceAlert: {
		priority:  domain.PriorityUrgent,
		channels:  []domain.Channel{domain.ChannelInApp, domain.ChannelEmail},
		recipient: "assignedTo",
		title:     func(domain.Payload) string { return "Low Compliance Score" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("Proposal %q scored %s on the compliance check.", p.String("title"), p.String("score"))
		},
	},
	domain.EventDeadlineAlert: {
		priority:  domain.PriorityUrgent,
		channels:  []domain.Channel{domain.ChannelInApp, domain.ChannelEmail, domain.ChannelChatPrimary},
		recipient: "assignedTo",
		title:     func(domain.Payload) string { return "Deadline Approaching" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("Proposal %q is due %s.", p.String("title"), p.String("dueDate"))
		},
	},
	domain.EventEscalation: {
		priority: domain.PriorityCritical,
		channels: []domain.Channel{
			domain.ChannelInApp, domain.ChannelEmail,
			domain.ChannelChatPrimary, domain.ChannelChatSecondary,
		},
		recipient: "escalatedTo",
		title:     func(domain.Payload) string { return "Escalation Required" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("Escalated to %s: %s", p.String("escalatedTo"), p.String("reason"))
		},
	},
	domain.EventReviewRequested: {
		priority:  domain.PriorityMedium,
		channels:  []domain.Channel{domain.ChannelInApp, domain.ChannelEmail},
		recipient: "reviewer",
		title:     func(domain.Payload) string { return "Review Requested" },
		message: func(p domain.Payload) string {
			return fmt.Sprintf("%s requested your review of proposal %q.", p.String("requestedBy"), p.String("title"))
		},
	},
}

// Recognized reports whether the kind has a catalog entry; unrecognized
// kinds classify through the generic fallback.
func Recognized(kind domain.EventKind) bool {
	_, ok := catalog[kind]
	return ok
}

// Classifier turns (event kind, payload) pairs into fully-formed notifications.
// Every inbound event produces exactly one notification: unrecognized kinds
// degrade to a generic low-priority in-app record instead of being dropped.
type Classifier struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify never fails. The payload is carried through as notification
// metadata so downstream prioritizer rules and channel senders can read it.
func (c *Classifier) Classify(kind domain.EventKind, payload domain.Payload) domain.Notification {
	e, ok := catalog[kind]
	if !ok {
		c.logger.Warn("unrecognized event kind, using generic classification",
			zap.String("event_kind", string(kind)))
		return c.fallback(kind, payload)
	}

	n := domain.Notification{
		ID:        uuid.New().String(),
		EventKind: kind,
		CreatedAt: time.Now().UTC(),
		Title:     e.title(payload),
		Message:   e.message(payload),
		Priority:  e.priority,
		Channels:  append([]domain.Channel(nil), e.channels...),
		Metadata:  copyPayload(payload),
	}
	if v, ok := payload[e.recipient].(string); ok {
		n.RecipientKey = v
	}
	return n
}

// fallback builds the generic notification for unknown event kinds.
func (c *Classifier) fallback(kind domain.EventKind, payload domain.Payload) domain.Notification {
	n := domain.Notification{
		ID:        uuid.New().String(),
		EventKind: kind,
		CreatedAt: time.Now().UTC(),
		Title:     "Notification",
		Message:   fmt.Sprintf("An event of type %q occurred.", string(kind)),
		Priority:  domain.PriorityLow,
		Channels:  []domain.Channel{domain.ChannelInApp},
		Metadata:  copyPayload(payload),
	}
	if v, ok := payload["assignedTo"].(string); ok {
		n.RecipientKey = v
	}
	return n
}

func copyPayload(payload domain.Payload) map[string]any {
	meta := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		meta[k] = v
	}
	return meta
}
