package conn

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/telemetry"
	"github.com/onnwee/chat-triage/testutil"
)

func testConfig(url string) Config {
	return Config{
		Name:              "test",
		URL:               url,
		RoomID:            "r1",
		HeartbeatInterval: 50 * time.Millisecond,
		MaxRetries:        3,
		BaseDelay:         10 * time.Millisecond,
		MaxDelay:          100 * time.Millisecond,
	}
}

// startSupervisor runs s in the background and returns a stop func that
// cancels the context and waits for Run to return.
func startSupervisor(t *testing.T, s *Supervisor) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("supervisor did not stop")
		}
	}
}

func TestSupervisorConnectsAndDeliversMessages(t *testing.T) {
	telemetry.Init()
	srv := testutil.NewChatServer(t)

	msgCh := make(chan chat.Message, 1)
	cfg := testConfig(srv.WSURL())
	cfg.OnMessage = func(msg chat.Message, _ *Supervisor) {
		select {
		case msgCh <- msg:
		default:
		}
	}
	s := NewSupervisor(cfg, nil)
	stop := startSupervisor(t, s)
	defer stop()

	testutil.WaitUntil(t, 2*time.Second, func() bool {
		return s.State() == StateConnected && srv.Accepted() >= 1
	})
	srv.Push([]byte(`{"type":"danmaku","sender_id":"u1","display_name":"小明","content":"在吗"}`))

	var msg chat.Message
	select {
	case msg = <-msgCh:
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
	if msg.SenderID != "u1" || msg.DisplayName != "小明" || msg.Content != "在吗" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.RoomID != "r1" {
		t.Errorf("RoomID = %q, want configured fallback %q", msg.RoomID, "r1")
	}
	st := s.Stats()
	if st.MessagesReceived != 1 {
		t.Errorf("MessagesReceived = %d, want 1", st.MessagesReceived)
	}
	if st.BytesIn == 0 {
		t.Error("BytesIn = 0 after receiving a frame")
	}
}

func TestSupervisorSend(t *testing.T) {
	srv := testutil.NewChatServer(t)
	s := NewSupervisor(testConfig(srv.WSURL()), nil)
	stop := startSupervisor(t, s)
	defer stop()

	testutil.WaitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })
	if err := s.Send("你好"); err != nil {
		t.Fatalf("Send string: %v", err)
	}
	if err := s.Send(map[string]string{"cmd": "join"}); err != nil {
		t.Fatalf("Send value: %v", err)
	}
	testutil.WaitUntil(t, 2*time.Second, func() bool { return len(srv.Received()) == 2 })

	got := srv.Received()
	if string(got[0]) != "你好" {
		t.Errorf("first frame = %q, want %q", got[0], "你好")
	}
	var payload map[string]string
	if err := json.Unmarshal(got[1], &payload); err != nil {
		t.Fatalf("unmarshal second frame: %v", err)
	}
	if payload["cmd"] != "join" {
		t.Errorf("second frame payload = %v", payload)
	}

	st := s.Stats()
	if st.MessagesSent != 2 {
		t.Errorf("MessagesSent = %d, want 2", st.MessagesSent)
	}
	if st.BytesOut == 0 {
		t.Error("BytesOut = 0 after two sends")
	}
}

func TestSupervisorSendWhileDisconnected(t *testing.T) {
	s := NewSupervisor(testConfig("ws://127.0.0.1:1/chat"), nil)
	if err := s.Send("hello"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send err = %v, want ErrNotConnected", err)
	}
}

func TestSupervisorReconnectsAfterDrop(t *testing.T) {
	srv := testutil.NewChatServer(t)
	s := NewSupervisor(testConfig(srv.WSURL()), nil)
	stop := startSupervisor(t, s)
	defer stop()

	testutil.WaitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })
	srv.DropClients()
	testutil.WaitUntil(t, 2*time.Second, func() bool {
		return srv.Accepted() >= 2 && s.State() == StateConnected
	})
	if got := s.Stats().Reconnects; got < 1 {
		t.Errorf("Reconnects = %d, want >= 1", got)
	}
}

func TestSupervisorFailsAfterMaxRetries(t *testing.T) {
	s := NewSupervisor(testConfig("ws://127.0.0.1:1/chat"), nil)
	stop := startSupervisor(t, s)
	defer stop()

	testutil.WaitUntil(t, 5*time.Second, func() bool { return s.State() == StateFailed })
	st := s.Stats()
	if st.Reconnects != 3 {
		t.Errorf("Reconnects = %d, want 3", st.Reconnects)
	}
	if st.LastError == "" {
		t.Error("LastError empty after exhausting retries")
	}
}

func TestSupervisorResetAfterFailure(t *testing.T) {
	srv := testutil.NewChatServer(t)
	s := NewSupervisor(testConfig(srv.WSURL()), nil)
	stop := startSupervisor(t, s)
	defer stop()

	testutil.WaitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })
	srv.Shutdown()
	testutil.WaitUntil(t, 5*time.Second, func() bool { return s.State() == StateFailed })

	if !s.Reset() {
		t.Fatal("Reset returned false for a failed supervisor")
	}
	// The refilled budget burns through another MaxRetries attempts against
	// the stopped server and parks again.
	testutil.WaitUntil(t, 5*time.Second, func() bool {
		return s.Stats().Reconnects >= 6 && s.State() == StateFailed
	})
}

func TestSupervisorDisconnectIdempotent(t *testing.T) {
	srv := testutil.NewChatServer(t)
	s := NewSupervisor(testConfig(srv.WSURL()), nil)
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	testutil.WaitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })
	s.Disconnect()
	s.Disconnect()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Disconnect")
	}
	if got := s.State(); got != StateDisconnected {
		t.Errorf("state = %v, want %v", got, StateDisconnected)
	}
	if s.Reset() {
		t.Error("Reset succeeded on a disconnected supervisor")
	}
}

func TestSupervisorHeartbeatTimestamps(t *testing.T) {
	srv := testutil.NewChatServer(t)
	cfg := testConfig(srv.WSURL())
	cfg.HeartbeatInterval = 20 * time.Millisecond
	s := NewSupervisor(cfg, nil)
	stop := startSupervisor(t, s)
	defer stop()

	// The test server answers pings with pongs while its read loop runs.
	testutil.WaitUntil(t, 2*time.Second, func() bool {
		st := s.Stats()
		return !st.LastPingAt.IsZero() && !st.LastPongAt.IsZero()
	})
}

func TestSupervisorPongTimeoutTriggersReconnect(t *testing.T) {
	srv := testutil.NewSilentChatServer(t)
	cfg := testConfig(srv.WSURL())
	cfg.HeartbeatInterval = 30 * time.Millisecond
	s := NewSupervisor(cfg, nil)
	stop := startSupervisor(t, s)
	defer stop()

	// The server never reads, so pings go unanswered and the read deadline
	// of two heartbeat intervals expires.
	testutil.WaitUntil(t, 2*time.Second, func() bool { return s.Stats().Reconnects >= 1 })
}

func TestSupervisorGiftAck(t *testing.T) {
	telemetry.Init()
	srv := testutil.NewChatServer(t)
	cfg := testConfig(srv.WSURL())
	cfg.AckGifts = true
	s := NewSupervisor(cfg, nil)
	stop := startSupervisor(t, s)
	defer stop()

	testutil.WaitUntil(t, 2*time.Second, func() bool {
		return s.State() == StateConnected && srv.Accepted() >= 1
	})
	srv.Push([]byte(`{"type":"gift","display_name":"小红","gift_name":"火箭","gift_value":500,"gift_count":1}`))
	testutil.WaitUntil(t, 2*time.Second, func() bool { return len(srv.Received()) == 1 })

	ack := string(srv.Received()[0])
	if !strings.Contains(ack, "小红") || !strings.Contains(ack, "火箭") {
		t.Errorf("ack = %q, want sender and gift name", ack)
	}

	srv.Push([]byte(`{"type":"gift","display_name":"路人","gift_name":"小心心","gift_value":1}`))
	time.Sleep(100 * time.Millisecond)
	if got := len(srv.Received()); got != 1 {
		t.Errorf("frames after below-threshold gift = %d, want 1", got)
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want time.Duration
	}{
		{"first retry", 0, time.Second},
		{"second retry", 1, 2 * time.Second},
		{"third retry", 2, 4 * time.Second},
		{"clamped at max", 10, time.Minute},
		{"shift overflow", 80, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoffDelay(time.Second, time.Minute, tt.n); got != tt.want {
				t.Errorf("backoffDelay(1s, 1m, %d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}
