package chat

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// FrameType identifies the kind of inbound frame.
type FrameType int

const (
	// TypeUnknown is the fallback for unrecognized type strings; callers ignore these frames.
	TypeUnknown FrameType = iota
	TypeDanmaku
	TypeGift
	TypeLike
	TypeEnter
	TypeFollow
	TypeShare
	TypeRoomInfo
)

// String returns the wire name of the frame type.
func (t FrameType) String() string {
	switch t {
	case TypeDanmaku:
		return "danmaku"
	case TypeGift:
		return "gift"
	case TypeLike:
		return "like"
	case TypeEnter:
		return "enter"
	case TypeFollow:
		return "follow"
	case TypeShare:
		return "share"
	case TypeRoomInfo:
		return "room_info"
	default:
		return "unknown"
	}
}

func parseFrameType(s string) FrameType {
	switch s {
	case "danmaku":
		return TypeDanmaku
	case "gift":
		return TypeGift
	case "like":
		return TypeLike
	case "enter":
		return TypeEnter
	case "follow":
		return TypeFollow
	case "share":
		return TypeShare
	case "room_info":
		return TypeRoomInfo
	default:
		return TypeUnknown
	}
}

// Frame is one decoded inbound event. Fields beyond the common envelope are
// populated only for the types that carry them.
type Frame struct {
	Type        FrameType
	SenderID    string
	DisplayName string
	Content     string
	RoomID      string
	Timestamp   time.Time

	// Gift frames.
	GiftName  string
	GiftCount int
	GiftValue int

	// Room info frames.
	Title       string
	ViewerCount int
}

// Message converts a danmaku frame into the pipeline message value. The
// display name falls back to DefaultDisplayName and a missing timestamp
// falls back to the decode time.
func (f Frame) Message() Message {
	name := f.DisplayName
	if name == "" {
		name = DefaultDisplayName
	}
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Message{
		SenderID:    f.SenderID,
		DisplayName: name,
		Content:     f.Content,
		RoomID:      f.RoomID,
		ReceivedAt:  ts,
	}
}

// wireFrame mirrors the upstream JSON envelope. Timestamp arrives either as
// an RFC3339 string or a unix seconds/milliseconds number depending on the
// gateway version, so it is parsed separately.
type wireFrame struct {
	Type        string          `json:"type"`
	SenderID    string          `json:"sender_id,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	Content     string          `json:"content,omitempty"`
	RoomID      string          `json:"room_id,omitempty"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
	GiftName    string          `json:"gift_name,omitempty"`
	GiftCount   int             `json:"gift_count,omitempty"`
	GiftValue   int             `json:"gift_value,omitempty"`
	Title       string          `json:"title,omitempty"`
	ViewerCount int             `json:"viewer_count,omitempty"`
}

// DecodeFrame parses one raw frame payload. Gzip-compressed payloads are
// detected by magic bytes and decompressed transparently. An unrecognized
// type string is not an error: the frame decodes with Type == TypeUnknown.
// A malformed payload (bad gzip, bad JSON, danmaku without content) returns
// an error and the frame must be dropped.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return Frame{}, fmt.Errorf("gzip frame: %w", err)
		}
		defer zr.Close()
		raw, err := io.ReadAll(zr)
		if err != nil {
			return Frame{}, fmt.Errorf("gzip frame: %w", err)
		}
		data = raw
	}

	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	f := Frame{
		Type:        parseFrameType(w.Type),
		SenderID:    w.SenderID,
		DisplayName: w.DisplayName,
		Content:     w.Content,
		RoomID:      w.RoomID,
		GiftName:    w.GiftName,
		GiftCount:   w.GiftCount,
		GiftValue:   w.GiftValue,
		Title:       w.Title,
		ViewerCount: w.ViewerCount,
	}
	if ts, ok := parseTimestamp(w.Timestamp); ok {
		f.Timestamp = ts
	}
	if f.Type == TypeDanmaku && f.Content == "" {
		return Frame{}, fmt.Errorf("danmaku frame missing content")
	}
	return f, nil
}

// EncodeFrame renders a frame into the upstream JSON envelope, the inverse
// of DecodeFrame for uncompressed payloads. A set timestamp is emitted as
// RFC3339; a danmaku frame without content is rejected the same way decoding
// rejects it.
func EncodeFrame(f Frame) ([]byte, error) {
	if f.Type == TypeDanmaku && f.Content == "" {
		return nil, fmt.Errorf("danmaku frame missing content")
	}
	w := wireFrame{
		Type:        f.Type.String(),
		SenderID:    f.SenderID,
		DisplayName: f.DisplayName,
		Content:     f.Content,
		RoomID:      f.RoomID,
		GiftName:    f.GiftName,
		GiftCount:   f.GiftCount,
		GiftValue:   f.GiftValue,
		Title:       f.Title,
		ViewerCount: f.ViewerCount,
	}
	if !f.Timestamp.IsZero() {
		ts, err := json.Marshal(f.Timestamp.UTC().Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("encode frame timestamp: %w", err)
		}
		w.Timestamp = ts
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// parseTimestamp accepts RFC3339 strings and unix second/millisecond numbers.
// Values that parse as neither are dropped silently; the caller falls back to
// the decode time.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), true
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixTime(n), true
		}
		return time.Time{}, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return unixTime(n), true
	}
	return time.Time{}, false
}

// unixTime treats values past year 2100 in seconds as milliseconds.
func unixTime(n int64) time.Time {
	if n > 4_102_444_800 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
