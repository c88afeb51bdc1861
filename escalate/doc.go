// Package escalate decides when a message leaves the automated path.
//
// The Classifier is a pure function over (content, drafted reply, confidence,
// risk level) plus a static Rules configuration: identical inputs always
// produce the identical Decision, which makes the rule table directly
// testable. Takeover rules are evaluated in a fixed order with first match
// winning; the audit trigger is evaluated independently, so one message can
// yield a takeover, an audit, both, or neither.
//
// TakeoverQueue holds raised requests for human operators in a bounded ring,
// oldest evicted on overflow, until they are resolved or pushed out.
package escalate
