package chat

import "time"

// DefaultDisplayName is substituted when a frame omits the sender's display name.
const DefaultDisplayName = "匿名用户"

// Message is a single chat message as consumed by the triage pipeline.
// It is a value type: created once on frame decode, never mutated after.
type Message struct {
	SenderID    string
	DisplayName string
	Content     string
	RoomID      string
	ReceivedAt  time.Time
}
