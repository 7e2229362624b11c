package prioritizer

import (
	"strings"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// HighValueThreshold is the estimated deal value above which a notification
// is escalated one level.
const HighValueThreshold = 1_000_000

// vipClients are matched as case-insensitive substrings of metadata.clientName.
var vipClients = []string{"acme", "globex", "initech"}

// DefaultRules is the production escalation rule set, in evaluation order.
// The leading zero-delta rule pins already-critical notifications so no later
// rule records a misleading escalation reason for them.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "already-critical",
			Match:  func(n domain.Notification) bool { return n.Priority >= domain.PriorityCritical },
			Delta:  0,
			Reason: "already at critical priority",
		},
		{
			Name:   "escalation-event",
			Match:  func(n domain.Notification) bool { return n.EventKind == domain.EventEscalation },
			Delta:  2,
			Reason: "escalation event",
		},
		{
			Name:   "deadline-event",
			Match:  func(n domain.Notification) bool { return n.EventKind == domain.EventDeadlineAlert },
			Delta:  1,
			Reason: "approaching deadline",
		},
		{
			Name: "high-value-deal",
			Match: func(n domain.Notification) bool {
				v, ok := domain.Payload(n.Metadata).Float("estimatedValue")
				return ok && v > HighValueThreshold
			},
			Delta:  1,
			Reason: "high estimated deal value",
		},
		{
			Name: "vip-client",
			Match: func(n domain.Notification) bool {
				name, ok := n.Metadata["clientName"].(string)
				if !ok {
					return false
				}
				name = strings.ToLower(name)
				for _, vip := range vipClients {
					if strings.Contains(name, vip) {
						return true
					}
				}
				return false
			},
			Delta:  1,
			Reason: "VIP client",
		},
	}
}
