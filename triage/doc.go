// Package triage turns the raw message firehose into a drainable work queue.
//
// Messages enter through a Pipeline, which suppresses per-sender duplicates,
// runs a first classification pass, raises operator takeovers for content
// that must not wait, and files everything else in a bounded three-level
// priority queue. A single Consumer drains the queue, consults the external
// responder for a drafted reply, re-evaluates the escalation rules against
// that reply, and sends whatever survives the audit and cooldown gates back
// over the originating connection.
package triage
