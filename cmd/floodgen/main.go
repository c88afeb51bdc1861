// Package main provides a CLI tool to replay synthetic chat traffic against a
// gateway, for load testing the triage pipeline end to end.
//
// It dials the websocket gateway and emits frames at a fixed rate from a pool
// of scripted senders and lines. A fraction of frames repeat the sender's
// previous line to exercise duplicate suppression, and a fraction are gift
// frames.
//
// Usage:
//
//	floodgen [--url URL] [--room ROOM] [--rate N] [--count N] [--senders N] [--dup P] [--gift P]
//
// Flags:
//
//	--url:     gateway websocket URL (default ws://localhost:9090/sub)
//	--room:    room id stamped on every frame (default load-1)
//	--rate:    frames per second (default 20)
//	--count:   total frames to send, 0 runs until interrupted (default 0)
//	--senders: size of the sender pool (default 50)
//	--dup:     probability a frame repeats the sender's previous line (default 0.1)
//	--gift:    probability a frame is a gift instead of a danmaku (default 0.05)
//
// Example:
//
//	./floodgen --url ws://localhost:9090/sub --rate 100 --count 5000
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/onnwee/chat-triage/chat"
)

// lines mixes ordinary chatter with questions and complaint phrasing so a
// replay run lights up every stage: replies, audits, and takeovers.
var lines = []string{
	"在吗",
	"666",
	"主播好",
	"这个多少钱？",
	"有优惠吗？",
	"什么时候发货",
	"怎么还不发货",
	"质量怎么样？",
	"能便宜点吗？",
	"已经下单了",
	"用了一周感觉不错",
	"太贵了吧",
	"我要投诉你们",
	"人工客服在吗",
	"帮我转人工",
}

// gifts are (name, count, unit value) triples; the last crosses the default
// thank-you threshold.
var gifts = []struct {
	name  string
	count int
	value int
}{
	{"小心心", 1, 1},
	{"棒棒糖", 2, 9},
	{"火箭", 1, 500},
}

// generator produces the synthetic frame stream. It tracks each sender's
// previous line so duplicate injection repeats real content.
type generator struct {
	rng     *rand.Rand
	room    string
	senders int
	dup     float64
	gift    float64
	last    map[string]string
}

func newGenerator(seed int64, room string, senders int, dup, gift float64) *generator {
	if senders < 1 {
		senders = 1
	}
	return &generator{
		rng:     rand.New(rand.NewSource(seed)),
		room:    room,
		senders: senders,
		dup:     dup,
		gift:    gift,
		last:    make(map[string]string),
	}
}

func (g *generator) next() chat.Frame {
	idx := g.rng.Intn(g.senders)
	senderID := fmt.Sprintf("load-u%03d", idx)
	display := fmt.Sprintf("压测用户%d", idx)

	if g.rng.Float64() < g.gift {
		gift := gifts[g.rng.Intn(len(gifts))]
		return chat.Frame{
			Type:        chat.TypeGift,
			SenderID:    senderID,
			DisplayName: display,
			RoomID:      g.room,
			GiftName:    gift.name,
			GiftCount:   gift.count,
			GiftValue:   gift.value,
		}
	}

	content := lines[g.rng.Intn(len(lines))]
	if prev, ok := g.last[senderID]; ok && g.rng.Float64() < g.dup {
		content = prev
	}
	g.last[senderID] = content
	return chat.Frame{
		Type:        chat.TypeDanmaku,
		SenderID:    senderID,
		DisplayName: display,
		Content:     content,
		RoomID:      g.room,
		Timestamp:   time.Now().UTC(),
	}
}

func main() {
	url := flag.String("url", "ws://localhost:9090/sub", "gateway websocket URL")
	room := flag.String("room", "load-1", "room id stamped on every frame")
	rate := flag.Int("rate", 20, "frames per second")
	count := flag.Int("count", 0, "total frames to send, 0 runs until interrupted")
	senders := flag.Int("senders", 50, "size of the sender pool")
	dup := flag.Float64("dup", 0.1, "probability a frame repeats the sender's previous line")
	gift := flag.Float64("gift", 0.05, "probability a frame is a gift instead of a danmaku")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *rate < 1 {
		slog.Error("rate must be at least 1")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, *url, nil)
	if err != nil {
		slog.Error("failed to dial gateway", slog.String("url", *url), slog.Any("error", err))
		os.Exit(1)
	}
	defer ws.Close()

	slog.Info("flood started",
		slog.String("url", *url),
		slog.String("room", *room),
		slog.Int("rate", *rate),
		slog.Int("count", *count))

	gen := newGenerator(time.Now().UnixNano(), *room, *senders, *dup, *gift)
	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	sent := 0
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			report(sent, start)
			return
		case <-ticker.C:
			data, err := chat.EncodeFrame(gen.next())
			if err != nil {
				slog.Error("failed to encode frame", slog.Any("error", err))
				os.Exit(1)
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Error("gateway write failed", slog.Int("sent", sent), slog.Any("error", err))
				os.Exit(1)
			}
			sent++
			if *count > 0 && sent >= *count {
				report(sent, start)
				return
			}
		}
	}
}

func report(sent int, start time.Time) {
	elapsed := time.Since(start)
	perSec := 0.0
	if elapsed > 0 {
		perSec = float64(sent) / elapsed.Seconds()
	}
	slog.Info("flood complete",
		slog.Int("sent", sent),
		slog.Duration("elapsed", elapsed.Round(time.Millisecond)),
		slog.Float64("frames_per_second", perSec))
}
