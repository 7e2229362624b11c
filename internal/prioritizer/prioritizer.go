package prioritizer

import (
	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// Rule is one entry of the ordered escalation rule list. Rules are data: the
// evaluation loop never inspects anything beyond Match, Delta, and Reason, so
// the active rule set can be swapped without touching the engine.
type Rule struct {
	Name string
	// Match may read only the notification's priority, event kind, and
	// metadata.
	Match func(n domain.Notification) bool
	// Delta is added to the priority, capped at critical.
	Delta int
	// Reason is recorded in the notification metadata when the rule applies.
	Reason string
}

// Prioritizer applies at most one rule per notification: evaluation stops at
// the first matching rule, even if later rules would also match.
type Prioritizer struct {
	rules  []Rule
	logger *zap.Logger
}

func New(rules []Rule, logger *zap.Logger) *Prioritizer {
	return &Prioritizer{rules: rules, logger: logger}
}

// Apply returns an adjusted copy of n. The caller's notification is never
// mutated. Priority only ever moves up, and never past critical.
func (p *Prioritizer) Apply(n domain.Notification) domain.Notification {
	for _, r := range p.rules {
		if !r.Match(n) {
			continue
		}

		out := n.Clone()
		adjusted := out.Priority + domain.Priority(r.Delta)
		if adjusted > domain.PriorityCritical {
			adjusted = domain.PriorityCritical
		}
		if adjusted < out.Priority {
			adjusted = out.Priority
		}
		out.Metadata[domain.MetaPrioritizationReason] = r.Reason
		out.Metadata[domain.MetaOriginalPriority] = int(out.Priority)
		out.Priority = adjusted

		p.logger.Debug("priority rule applied",
			zap.String("notification_id", n.ID),
			zap.String("rule", r.Name),
			zap.Int("from", int(n.Priority)),
			zap.Int("to", int(adjusted)),
		)
		return out
	}
	return n
}
