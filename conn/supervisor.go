package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/faults"
	"github.com/onnwee/chat-triage/telemetry"
)

// Defaults applied by NewSupervisor when the corresponding Config field is
// zero.
const (
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultMaxRetries        = 5
	DefaultBaseDelay         = 3 * time.Second
	DefaultMaxDelay          = 60 * time.Second
	DefaultGiftThankValue    = 100

	dialTimeout = 10 * time.Second
	writeWait   = 5 * time.Second
)

// ErrNotConnected is returned by Send when no live connection exists.
var ErrNotConnected = fmt.Errorf("not connected")

// MessageHandler receives each decoded chat message along with the
// supervisor it arrived on, which doubles as the reply path.
type MessageHandler func(msg chat.Message, from *Supervisor)

// Config describes one upstream chat connection.
type Config struct {
	Name   string
	URL    string
	RoomID string

	// HeartbeatInterval is the ping cadence; a pong must arrive within twice
	// this interval or the connection is considered dead.
	HeartbeatInterval time.Duration
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration

	// AckGifts thanks senders whose gift value reaches GiftThankValue.
	AckGifts       bool
	GiftThankValue int

	OnMessage MessageHandler
}

// Supervisor owns one websocket connection for its whole lifecycle. Run
// drives it; Send, Disconnect and Reset may be called from any goroutine.
type Supervisor struct {
	cfg    Config
	faults *faults.Handler
	dialer *websocket.Dialer

	state atomic.Int32

	mu sync.Mutex // guards ws and outbound writes
	ws *websocket.Conn

	resetCh chan struct{}
	closeCh chan struct{}
	closed  atomic.Bool

	statsMu       sync.Mutex
	messages      int
	messagesOut   int
	bytesIn       int64
	bytesOut      int64
	reconnects    int
	lastConnected time.Time
	lastPing      time.Time
	lastPong      time.Time
	lastError     string
}

// NewSupervisor builds a supervisor; zero Config fields take the defaults.
// faults may be nil to keep failures in logs only.
func NewSupervisor(cfg Config, faults *faults.Handler) *Supervisor {
	if cfg.Name == "" {
		cfg.Name = cfg.URL
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.GiftThankValue <= 0 {
		cfg.GiftThankValue = DefaultGiftThankValue
	}
	return &Supervisor{
		cfg:     cfg,
		faults:  faults,
		dialer:  &websocket.Dialer{HandshakeTimeout: dialTimeout},
		resetCh: make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

// Name returns the connection name.
func (s *Supervisor) Name() string { return s.cfg.Name }

// State returns the current lifecycle state.
func (s *Supervisor) State() State { return State(s.state.Load()) }

func (s *Supervisor) setState(st State) { s.state.Store(int32(st)) }

// Run drives the connection until ctx is cancelled or Disconnect is called.
// Reconnect delays follow min(BaseDelay*2^n, MaxDelay); after MaxRetries
// consecutive failures the supervisor parks in StateFailed until Reset.
func (s *Supervisor) Run(ctx context.Context) {
	logger := slog.Default().With(
		slog.String("conn", s.cfg.Name),
		slog.String("component", "conn"))
	retries := 0
	for {
		if s.stopped(ctx) {
			s.setState(StateDisconnected)
			return
		}
		if retries == 0 {
			s.setState(StateConnecting)
		} else {
			s.setState(StateReconnecting)
		}

		wasConnected, err := s.runOnce(ctx, logger)
		if s.stopped(ctx) {
			s.setState(StateDisconnected)
			logger.Info("connection stopped")
			return
		}
		if wasConnected {
			retries = 0
		}
		retries++
		s.noteError(err)

		if retries > s.cfg.MaxRetries {
			s.setState(StateFailed)
			logger.Error("connection failed, retries exhausted",
				slog.Int("retries", s.cfg.MaxRetries),
				slog.Any("err", err))
			if s.faults != nil {
				s.faults.Report(ctx, err, "connection retries exhausted",
					map[string]any{"conn": s.cfg.Name, "url": s.cfg.URL})
			}
			select {
			case <-ctx.Done():
				return
			case <-s.closeCh:
				s.setState(StateDisconnected)
				return
			case <-s.resetCh:
				logger.Info("connection reset, retrying")
				retries = 0
				continue
			}
		}

		delay := backoffDelay(s.cfg.BaseDelay, s.cfg.MaxDelay, retries-1)
		logger.Warn("connection lost, retrying",
			slog.Int("attempt", retries),
			slog.Duration("delay", delay),
			slog.Any("err", err))
		telemetry.IncReconnect(s.cfg.Name)
		s.statsMu.Lock()
		s.reconnects++
		s.statsMu.Unlock()

		select {
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return
		case <-s.closeCh:
			s.setState(StateDisconnected)
			return
		case <-time.After(delay):
		}
	}
}

func (s *Supervisor) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || s.closed.Load()
}

// runOnce dials once and pumps frames until the connection dies. It reports
// whether a connection was established at all, so the caller can reset the
// retry budget after a healthy session.
func (s *Supervisor) runOnce(ctx context.Context, logger *slog.Logger) (bool, error) {
	ws, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return false, fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	s.mu.Lock()
	s.ws = ws
	s.mu.Unlock()
	s.setState(StateConnected)
	s.statsMu.Lock()
	s.lastConnected = time.Now().UTC()
	s.statsMu.Unlock()
	logger.Info("connected", slog.String("url", s.cfg.URL))

	err = s.pump(ctx, ws)

	s.mu.Lock()
	s.ws = nil
	s.mu.Unlock()
	_ = ws.Close()
	return true, err
}

// pump reads frames until the connection dies. The read deadline is twice
// the heartbeat interval and every pong pushes it forward, so a peer that
// stops answering pings is cut loose within two intervals.
func (s *Supervisor) pump(ctx context.Context, ws *websocket.Conn) error {
	wait := 2 * s.cfg.HeartbeatInterval
	if err := ws.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		s.statsMu.Lock()
		s.lastPong = time.Now().UTC()
		s.statsMu.Unlock()
		return ws.SetReadDeadline(time.Now().Add(wait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.heartbeat(ctx, ws, done)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.handleFrame(data)
	}
}

// heartbeat pings on the configured cadence. On shutdown it closes the
// socket so the blocked read loop returns immediately.
func (s *Supervisor) heartbeat(ctx context.Context, ws *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = ws.Close()
			return
		case <-s.closeCh:
			_ = ws.Close()
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = ws.Close()
				return
			}
			s.statsMu.Lock()
			s.lastPing = time.Now().UTC()
			s.statsMu.Unlock()
		}
	}
}

func (s *Supervisor) handleFrame(data []byte) {
	s.statsMu.Lock()
	s.bytesIn += int64(len(data))
	s.statsMu.Unlock()
	frame, err := chat.DecodeFrame(data)
	if err != nil {
		telemetry.FramesDropped.Inc()
		slog.Debug("frame dropped", slog.String("conn", s.cfg.Name), slog.Any("err", err))
		return
	}
	switch frame.Type {
	case chat.TypeUnknown:
	case chat.TypeDanmaku:
		s.statsMu.Lock()
		s.messages++
		s.statsMu.Unlock()
		if s.cfg.OnMessage != nil {
			msg := frame.Message()
			if msg.RoomID == "" {
				msg.RoomID = s.cfg.RoomID
			}
			s.cfg.OnMessage(msg, s)
		}
	case chat.TypeGift:
		telemetry.IncEngagement("gift")
		s.thankGift(frame)
	case chat.TypeRoomInfo:
		if frame.ViewerCount > 0 {
			room := frame.RoomID
			if room == "" {
				room = s.cfg.RoomID
			}
			telemetry.SetRoomViewers(room, frame.ViewerCount)
		}
	default:
		telemetry.IncEngagement(frame.Type.String())
	}
}

// thankGift acknowledges gifts worth the configured threshold or more.
func (s *Supervisor) thankGift(f chat.Frame) {
	if !s.cfg.AckGifts {
		return
	}
	count := f.GiftCount
	if count <= 0 {
		count = 1
	}
	if f.GiftValue*count < s.cfg.GiftThankValue {
		return
	}
	name := f.DisplayName
	if name == "" {
		name = chat.DefaultDisplayName
	}
	if err := s.Send(fmt.Sprintf("感谢%s送出的%s！", name, f.GiftName)); err != nil {
		slog.Debug("gift ack failed", slog.String("conn", s.cfg.Name), slog.Any("err", err))
	}
}

// Send writes v over the live connection: strings and byte slices go out as
// text frames, everything else as JSON.
func (s *Supervisor) Send(v any) error {
	var data []byte
	switch p := v.(type) {
	case string:
		data = []byte(p)
	case []byte:
		data = p
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		data = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return ErrNotConnected
	}
	if err := s.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	s.statsMu.Lock()
	s.messagesOut++
	s.bytesOut += int64(len(data))
	s.statsMu.Unlock()
	return nil
}

// Disconnect permanently stops the supervisor. Safe to call repeatedly.
func (s *Supervisor) Disconnect() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.closeCh)
	}
	s.mu.Lock()
	if s.ws != nil {
		_ = s.ws.Close()
	}
	s.mu.Unlock()
}

// Reset refills the retry budget of a supervisor parked in StateFailed so
// its run loop dials again. It reports whether a reset was delivered.
func (s *Supervisor) Reset() bool {
	if s.State() != StateFailed || s.closed.Load() {
		return false
	}
	select {
	case s.resetCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// Stats is one supervisor's observable snapshot.
type Stats struct {
	Name             string    `json:"name"`
	URL              string    `json:"url"`
	RoomID           string    `json:"room_id,omitempty"`
	State            string    `json:"state"`
	MessagesReceived int       `json:"messages_received"`
	MessagesSent     int       `json:"messages_sent"`
	BytesIn          int64     `json:"bytes_in"`
	BytesOut         int64     `json:"bytes_out"`
	Reconnects       int       `json:"reconnects"`
	LastConnectedAt  time.Time `json:"last_connected_at"`
	LastPingAt       time.Time `json:"last_ping_at"`
	LastPongAt       time.Time `json:"last_pong_at"`
	LastError        string    `json:"last_error,omitempty"`
}

// Stats returns the current snapshot.
func (s *Supervisor) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return Stats{
		Name:             s.cfg.Name,
		URL:              s.cfg.URL,
		RoomID:           s.cfg.RoomID,
		State:            s.State().String(),
		MessagesReceived: s.messages,
		MessagesSent:     s.messagesOut,
		BytesIn:          s.bytesIn,
		BytesOut:         s.bytesOut,
		Reconnects:       s.reconnects,
		LastConnectedAt:  s.lastConnected,
		LastPingAt:       s.lastPing,
		LastPongAt:       s.lastPong,
		LastError:        s.lastError,
	}
}

func (s *Supervisor) noteError(err error) {
	if err == nil {
		return
	}
	s.statsMu.Lock()
	s.lastError = err.Error()
	s.statsMu.Unlock()
}

// backoffDelay is min(base*2^n, max), clamping shift overflow to max.
func backoffDelay(base, max time.Duration, n int) time.Duration {
	if n > 30 {
		return max
	}
	d := base << uint(n)
	if d > max || d <= 0 {
		return max
	}
	return d
}
