package classifier_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/classifier"
	"github.com/proposalhub/notify-fabric/internal/domain"
)

var allKinds = []domain.EventKind{
	domain.EventProposalCreated,
	domain.EventProposalSubmitted,
	domain.EventProposalApproved,
	domain.EventProposalRejected,
	domain.EventDraftReady,
	domain.EventComplianceAlert,
	domain.EventDeadlineAlert,
	domain.EventEscalation,
	domain.EventReviewRequested,
}

// TestClassify_TotalCoverage verifies that every event kind, known or not,
// produces exactly one well-formed notification.
func TestClassify_TotalCoverage(t *testing.T) {
	c := classifier.New(zap.NewNop())

	kinds := append([]domain.EventKind{"totally_unknown_kind", ""}, allKinds...)
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			n := c.Classify(kind, domain.Payload{"title": "Q3 Bid"})

			if n.ID == "" {
				t.Fatal("expected a generated ID")
			}
			if n.EventKind != kind {
				t.Fatalf("expected event kind %q, got %q", kind, n.EventKind)
			}
			if !n.Priority.IsValid() {
				t.Fatalf("invalid priority %d", n.Priority)
			}
			if len(n.Channels) == 0 {
				t.Fatal("channel set must be non-empty")
			}
			if n.Title == "" || n.Message == "" {
				t.Fatal("title and message must render")
			}
			if n.CreatedAt.IsZero() {
				t.Fatal("expected a classification timestamp")
			}
		})
	}
}

func TestClassify_UnknownKindFallback(t *testing.T) {
	c := classifier.New(zap.NewNop())

	payload := domain.Payload{"some": "data", "assignedTo": "user-7"}
	n := c.Classify("mystery_event", payload)

	if n.Priority != domain.PriorityLow {
		t.Fatalf("expected low priority, got %d", n.Priority)
	}
	if len(n.Channels) != 1 || n.Channels[0] != domain.ChannelInApp {
		t.Fatalf("expected in-app only, got %v", n.Channels)
	}
	if n.Metadata["some"] != "data" {
		t.Fatal("fallback must carry the raw payload as metadata")
	}
	if n.RecipientKey != "user-7" {
		t.Fatalf("expected recipient user-7, got %q", n.RecipientKey)
	}
}

func TestClassify_Escalation(t *testing.T) {
	c := classifier.New(zap.NewNop())

	n := c.Classify(domain.EventEscalation, domain.Payload{
		"reason":      "SLA breach",
		"escalatedTo": "gm-1",
	})

	if n.Priority != domain.PriorityCritical {
		t.Fatalf("expected critical, got %d", n.Priority)
	}
	if !strings.Contains(n.Title, "Escalation Required") {
		t.Fatalf("title %q should contain 'Escalation Required'", n.Title)
	}
	if !strings.Contains(n.Message, "SLA breach") {
		t.Fatalf("message %q should contain the reason", n.Message)
	}
	if n.RecipientKey != "gm-1" {
		t.Fatalf("expected recipient gm-1, got %q", n.RecipientKey)
	}

	want := []domain.Channel{
		domain.ChannelInApp, domain.ChannelEmail,
		domain.ChannelChatPrimary, domain.ChannelChatSecondary,
	}
	if len(n.Channels) != len(want) {
		t.Fatalf("expected %d channels, got %v", len(want), n.Channels)
	}
	for i, ch := range want {
		if n.Channels[i] != ch {
			t.Fatalf("expected channel %q at %d, got %q", ch, i, n.Channels[i])
		}
	}
}

func TestClassify_FixedBaseTable(t *testing.T) {
	c := classifier.New(zap.NewNop())

	tests := []struct {
		kind     domain.EventKind
		priority domain.Priority
		channels int
	}{
		{domain.EventProposalCreated, domain.PriorityMedium, 2},
		{domain.EventDeadlineAlert, domain.PriorityUrgent, 3},
		{domain.EventEscalation, domain.PriorityCritical, 4},
		{domain.EventDraftReady, domain.PriorityMedium, 1},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			n := c.Classify(tc.kind, domain.Payload{})
			if n.Priority != tc.priority {
				t.Fatalf("expected priority %d, got %d", tc.priority, n.Priority)
			}
			if len(n.Channels) != tc.channels {
				t.Fatalf("expected %d channels, got %v", tc.channels, n.Channels)
			}
		})
	}
}

// TestClassify_MissingFields verifies classification tolerates absent payload
// sub-fields by rendering "Unknown" rather than failing.
func TestClassify_MissingFields(t *testing.T) {
	c := classifier.New(zap.NewNop())

	n := c.Classify(domain.EventProposalApproved, domain.Payload{})

	if !strings.Contains(n.Message, "Unknown") {
		t.Fatalf("expected 'Unknown' placeholders in %q", n.Message)
	}
	if n.RecipientKey != "" {
		t.Fatalf("expected empty recipient, got %q", n.RecipientKey)
	}
}

func TestClassify_MetadataCarriesPayload(t *testing.T) {
	c := classifier.New(zap.NewNop())

	n := c.Classify(domain.EventProposalSubmitted, domain.Payload{
		"title":          "Acme RFP",
		"clientName":     "Acme Corp",
		"estimatedValue": 2_500_000,
	})

	if n.Metadata["clientName"] != "Acme Corp" {
		t.Fatal("metadata should carry clientName")
	}
	if n.Metadata["estimatedValue"] != 2_500_000 {
		t.Fatal("metadata should carry estimatedValue")
	}
}

func TestRecognized(t *testing.T) {
	for _, kind := range allKinds {
		if !classifier.Recognized(kind) {
			t.Fatalf("%q should be recognized", kind)
		}
	}
	if classifier.Recognized("nope") {
		t.Fatal("unknown kind should not be recognized")
	}
}
