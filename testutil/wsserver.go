// Package testutil hosts shared test fixtures: an in-process websocket chat
// gateway and a scripted responder service.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ChatServer is an in-process websocket endpoint standing in for the
// upstream chat gateway. A reading server answers pings automatically; a
// silent one never reads, so client pings get no pong back.
type ChatServer struct {
	*httptest.Server
	silent bool

	mu       sync.Mutex
	conns    []*websocket.Conn
	accepted int
	received [][]byte
}

// NewChatServer starts a gateway that records inbound text frames.
func NewChatServer(t *testing.T) *ChatServer {
	return newChatServer(t, false)
}

// NewSilentChatServer starts a gateway that accepts connections but never
// reads from them.
func NewSilentChatServer(t *testing.T) *ChatServer {
	return newChatServer(t, true)
}

func newChatServer(t *testing.T, silent bool) *ChatServer {
	t.Helper()
	cs := &ChatServer{silent: silent}
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.handle))
	t.Cleanup(cs.Shutdown)
	return cs
}

// WSURL returns the ws:// address of the gateway.
func (cs *ChatServer) WSURL() string {
	return "ws" + strings.TrimPrefix(cs.URL, "http")
}

func (cs *ChatServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	cs.mu.Lock()
	cs.conns = append(cs.conns, conn)
	cs.accepted++
	cs.mu.Unlock()

	if cs.silent {
		return
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		cs.mu.Lock()
		cs.received = append(cs.received, data)
		cs.mu.Unlock()
	}
}

// Push writes one raw frame to every live client.
func (cs *ChatServer) Push(data []byte) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, conn := range cs.conns {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// Received returns a copy of the frames clients sent so far.
func (cs *ChatServer) Received() [][]byte {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([][]byte, len(cs.received))
	copy(out, cs.received)
	return out
}

// Accepted returns how many connections the gateway ever accepted.
func (cs *ChatServer) Accepted() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.accepted
}

// DropClients closes every live connection, simulating upstream loss.
func (cs *ChatServer) DropClients() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, conn := range cs.conns {
		_ = conn.Close()
	}
	cs.conns = cs.conns[:0]
}

// Shutdown drops all clients and stops the server.
func (cs *ChatServer) Shutdown() {
	cs.DropClients()
	cs.Close()
}

// WaitUntil polls cond until it holds or the deadline passes.
func WaitUntil(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
