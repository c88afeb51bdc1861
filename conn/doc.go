// Package conn maintains the upstream chat connections. Each Supervisor
// owns one websocket: it dials, heartbeats, decodes inbound frames, and
// reconnects with exponential backoff, parking in a failed state when the
// retry budget runs out. A Registry groups supervisors by name for
// aggregate stats and broadcasts.
package conn
