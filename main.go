// Command chat-triage is the main entrypoint for the chat triage service.
// It:
//   - Loads configuration and initializes structured logging.
//   - Supervises websocket connections to live-room chat gateways.
//   - Runs the triage pipeline: dedup, escalation rules, priority queue,
//     and the consumer that drafts, audits, or withholds replies.
//   - Exposes an HTTP server with /healthz, /readyz, /metrics and the
//     operator API under /api/.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/chat-triage/audit"
	"github.com/onnwee/chat-triage/cache"
	"github.com/onnwee/chat-triage/chat"
	"github.com/onnwee/chat-triage/config"
	"github.com/onnwee/chat-triage/conn"
	"github.com/onnwee/chat-triage/escalate"
	"github.com/onnwee/chat-triage/faults"
	"github.com/onnwee/chat-triage/responder"
	"github.com/onnwee/chat-triage/server"
	"github.com/onnwee/chat-triage/telemetry"
	"github.com/onnwee/chat-triage/triage"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("chat-triage", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Fault handling: classified errors fan out to alert channels and feed
	// per-category recovery strategies.
	alerts := faults.NewAlertManager()
	if cfg.AlertWebhookURL != "" {
		minLevel := faults.ParseLevel(cfg.AlertWebhookMinLevel)
		alerts.Register(faults.NewWebhookChannel(cfg.AlertWebhookURL), minLevel)
		slog.Info("alert webhook registered", slog.String("min_level", minLevel.String()))
	}
	recovery := faults.NewAutoRecovery(cfg.ErrorMaxRetries)
	faultHandler := faults.NewHandler(alerts, recovery)

	// Room context cache (optional; requires REDIS_ADDR). The pipeline runs
	// without it, replies just lose conversational context.
	var contextCache *cache.Cache
	if cfg.RedisAddr != "" {
		contextCache, err = cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ContextDepth)
		if err != nil {
			slog.Warn("context cache unavailable, continuing without room context", slog.Any("err", err))
			contextCache = nil
		} else {
			defer func() {
				if err := contextCache.Close(); err != nil {
					slog.Error("failed to close context cache", slog.Any("err", err))
				}
			}()
			// Cache recovery drops the faulting room's window, then pings.
			recovery.Register(faults.CategoryCache, func(rctx context.Context, rec *faults.Record) error {
				if room, ok := rec.Context["room"].(string); ok && room != "" {
					if err := contextCache.Clear(rctx, room); err != nil {
						return err
					}
				}
				return contextCache.Ping(rctx)
			})
		}
	}

	// Responder client (optional; requires RESPONDER_URL). Without it messages
	// are still triaged and escalated, only automated replies are off.
	var respClient *responder.Client
	if cfg.ResponderURL != "" {
		respClient = responder.New(cfg.ResponderURL, cfg.ResponderTimeout)
	} else {
		slog.Info("responder disabled (RESPONDER_URL not set)")
	}

	// Escalation rules: built-in defaults, optionally overlaid from YAML.
	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		slog.Error("escalation rules load failed", slog.Any("err", err))
		os.Exit(1)
	}
	classifier := escalate.NewClassifier(rules)

	dedup := triage.NewDeduplicator(cfg.DedupWindow, cfg.DedupMaxRecent)
	queue := triage.NewQueue(cfg.MaxQueueSize)
	takeovers := escalate.NewTakeoverQueue(0)
	audits := audit.NewLedger(0)
	pipeline := triage.NewPipeline(dedup, classifier, takeovers, queue)

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connection supervision. The factory is shared with the admin API so
	// operator-added connections feed the same pipeline.
	registry := conn.NewRegistry()
	newSupervisor := func(name, url, roomID string) *conn.Supervisor {
		return conn.NewSupervisor(conn.Config{
			Name:              name,
			URL:               url,
			RoomID:            roomID,
			HeartbeatInterval: cfg.HeartbeatInterval,
			MaxRetries:        cfg.MaxRetries,
			BaseDelay:         cfg.BaseDelay,
			MaxDelay:          cfg.MaxDelay,
			AckGifts:          cfg.AckGifts,
			GiftThankValue:    cfg.GiftThankThreshold,
			OnMessage: func(msg chat.Message, from *conn.Supervisor) {
				pipeline.Ingest(msg, from)
			},
		}, faultHandler)
	}
	recovery.Register(faults.CategoryConnection, func(_ context.Context, _ *faults.Record) error {
		registry.ResetFailed()
		return nil
	})

	if err := cfg.ValidateConnReady(); err == nil {
		sup := newSupervisor(cfg.ConnName, cfg.WSURL, cfg.RoomID)
		registry.Add(sup)
		go sup.Run(ctx)
	} else {
		slog.Info("no upstream connection configured; add one via POST /api/connections")
	}

	// Consumer: single drain loop over the priority queue.
	consumerCfg := triage.ConsumerConfig{
		Queue:        queue,
		Classifier:   classifier,
		Takeovers:    takeovers,
		Audits:       audits,
		Faults:       faultHandler,
		Cooldown:     cfg.ReplyCooldown,
		ContextDepth: cfg.ContextDepth,
	}
	if respClient != nil {
		consumerCfg.Responder = respClient
	}
	if contextCache != nil {
		consumerCfg.Cache = contextCache
	}
	go triage.NewConsumer(consumerCfg).Run(ctx)

	// Periodic stats snapshot (also keeps the Prometheus gauges fresh).
	go triage.StartStatsJob(ctx, triage.StatsSources{
		Queue:     queue,
		Dedup:     dedup,
		Takeovers: takeovers,
		Audits:    audits,
		Faults:    faultHandler,
		Conns:     registry,
	}, cfg.StatsInterval)

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/readiness/metrics plus the operator API)
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	deps := server.Deps{
		Registry:      registry,
		Queue:         queue,
		Dedup:         dedup,
		Takeovers:     takeovers,
		Audits:        audits,
		Faults:        faultHandler,
		Cache:         contextCache,
		NewSupervisor: newSupervisor,
	}
	go func() {
		if err := server.Start(ctx, deps, addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
	registry.CloseAll()
}
