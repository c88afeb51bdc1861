package escalate

import "strings"

// Reason names why a takeover rule fired.
type Reason string

const (
	ReasonSevereComplaint   Reason = "severe_complaint"
	ReasonEscalationRequest Reason = "escalation_request"
	ReasonLowConfidence     Reason = "low_confidence"
	ReasonBrandRisk         Reason = "brand_risk"
)

// CategoryOther is the fallback category when no intent rule matches.
const CategoryOther = "other"

// Input is everything a classification decision may depend on. Confidence
// defaults to fully trusted at ingest time, before the responder has scored
// the message; use IngestInput for that path.
type Input struct {
	Content    string
	Reply      string
	Confidence float64
	RiskLevel  string
}

// IngestInput wraps bare content with the trusted-confidence default used
// before the responder has been consulted.
func IngestInput(content string) Input {
	return Input{Content: content, Confidence: 1.0}
}

// Decision is the classification outcome. Takeover and Audit are independent:
// a message may trigger both, either, or neither.
type Decision struct {
	Takeover bool
	Reason   Reason
	Urgency  Priority

	Audit bool

	Priority Priority
	Category string
}

// Classifier evaluates the static rule set. It holds no mutable state; the
// same input always yields the same decision.
type Classifier struct {
	rules Rules
}

// NewClassifier builds a classifier over the given rules.
func NewClassifier(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Rules returns the active rule set.
func (c *Classifier) Rules() Rules { return c.rules }

// Evaluate runs the takeover rules in order (first match wins), the intent
// table for queue admission, and the independent audit trigger.
//
// Takeover order: complaint keywords, explicit human-escalation phrases,
// confidence below the low threshold, brand-risk keywords.
func (c *Classifier) Evaluate(in Input) Decision {
	d := Decision{Priority: PriorityMedium, Category: CategoryOther}

	switch {
	case matchAny(in.Content, c.rules.ComplaintKeywords):
		d.Takeover, d.Reason, d.Urgency = true, ReasonSevereComplaint, PriorityHigh
	case matchAny(in.Content, c.rules.EscalationKeywords):
		d.Takeover, d.Reason, d.Urgency = true, ReasonEscalationRequest, PriorityMedium
	case in.Confidence < c.rules.LowConfidence:
		d.Takeover, d.Reason, d.Urgency = true, ReasonLowConfidence, PriorityMedium
	case matchAny(in.Content, c.rules.BrandRiskKeywords):
		d.Takeover, d.Reason, d.Urgency = true, ReasonBrandRisk, PriorityHigh
	}

	if d.Takeover {
		d.Priority = d.Urgency
		d.Category = string(d.Reason)
	} else {
		for _, intent := range c.rules.Intents {
			if matchAny(in.Content, intent.Keywords) {
				d.Priority = intent.Priority
				d.Category = intent.Category
				break
			}
		}
	}

	d.Audit = in.Confidence < c.rules.AuditConfidence ||
		matchAny(in.Content, c.rules.AuditKeywords) ||
		(in.Reply != "" && matchAny(in.Reply, c.rules.AuditKeywords)) ||
		strings.EqualFold(in.RiskLevel, "high")

	return d
}

// ShouldReply reports whether a message deserves an automated reply: any
// question mark, or one of the configured reply keywords.
func (c *Classifier) ShouldReply(content string) bool {
	if strings.Contains(content, "?") || strings.Contains(content, "？") {
		return true
	}
	return matchAny(content, c.rules.ReplyKeywords)
}

func matchAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
