package responder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/testutil"
)

func TestClientClassify(t *testing.T) {
	m := testutil.NewMockResponder(t)
	m.Script("price_inquiry", 0.92, "一共99元哦", "low")

	c := New(m.URL, 2*time.Second)
	msg := chat.Message{SenderID: "u1", DisplayName: "小明", Content: "这个多少钱？", RoomID: "r1"}
	res, err := c.Classify(context.Background(), msg, []string{"小明: 在吗"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Intent != "price_inquiry" || res.Reply != "一共99元哦" || res.RiskLevel != "low" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", res.Confidence)
	}

	reqs := m.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests recorded = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if req["content"] != "这个多少钱？" || req["sender_id"] != "u1" || req["room_id"] != "r1" {
		t.Errorf("unexpected request payload: %v", req)
	}
	lines, ok := req["context"].([]any)
	if !ok || len(lines) != 1 || lines[0] != "小明: 在吗" {
		t.Errorf("context = %v, want the seeded line", req["context"])
	}
}

func TestClientClassifyServerError(t *testing.T) {
	m := testutil.NewMockResponder(t)
	m.Fail(503)

	c := New(m.URL, 2*time.Second)
	_, err := c.Classify(context.Background(), chat.Message{Content: "在吗"}, nil)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want status code in message", err)
	}
}

func TestClientClassifyWithoutBaseURL(t *testing.T) {
	c := New("", time.Second)
	if _, err := c.Classify(context.Background(), chat.Message{Content: "在吗"}, nil); err == nil {
		t.Fatal("expected error when base URL is unset")
	}
}
