package faults

import (
	"strings"
	"time"
)

// Category groups faults by the subsystem they originate from.
type Category int

const (
	// CategoryConnection covers the persistent upstream connection and its transport.
	CategoryConnection Category = iota
	// CategoryCache covers the Redis context cache.
	CategoryCache
	// CategoryAPI covers calls to external HTTP collaborators.
	CategoryAPI
	// CategorySpeech covers speech recognition input faults.
	CategorySpeech
	// CategoryModel covers the language-model responder.
	CategoryModel
	// CategoryNetwork covers generic network faults not tied to the upstream connection.
	CategoryNetwork
	// CategorySystem is the fallback for everything else.
	CategorySystem
)

// String returns the lowercase category name used in stats keys and metrics labels.
func (c Category) String() string {
	switch c {
	case CategoryConnection:
		return "connection"
	case CategoryCache:
		return "cache"
	case CategoryAPI:
		return "api"
	case CategorySpeech:
		return "speech"
	case CategoryModel:
		return "model"
	case CategoryNetwork:
		return "network"
	default:
		return "system"
	}
}

// Level is the severity of a fault.
type Level int

const (
	// LevelFatal means unrecoverable without operator intervention.
	LevelFatal Level = iota
	// LevelError means a core capability is affected but the process survives.
	LevelError
	// LevelWarn means degraded but non-blocking.
	LevelWarn
	// LevelInfo means expected or normal.
	LevelInfo
)

// String returns the uppercase level name used in stats keys and alerts.
func (l Level) String() string {
	switch l {
	case LevelFatal:
		return "FATAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	default:
		return "INFO"
	}
}

// ParseLevel maps a level name onto its enum value, defaulting to LevelError
// for unrecognized names.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "fatal":
		return LevelFatal
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "info":
		return LevelInfo
	default:
		return LevelError
	}
}

// Record is one classified fault occurrence.
type Record struct {
	Level      Level
	Category   Category
	Message    string
	Err        error
	Context    map[string]any
	OccurredAt time.Time
	RetryCount int
	Resolved   bool
}

// classifyTable is scanned in order; the first category with a matching
// pattern wins. Connection patterns come first since "connection" appears in
// several subsystems' error text but the upstream socket is the usual source.
var classifyTable = []struct {
	category Category
	patterns []string
}{
	{CategoryConnection, []string{"websocket", "handshake", "ping", "pong", "close 1", "disconnected", "connection"}},
	{CategoryCache, []string{"redis", "cache", "expired"}},
	{CategoryAPI, []string{"api", "http", "request", "rate limit", "429", "503"}},
	{CategorySpeech, []string{"asr", "speech", "audio", "recognition"}},
	{CategoryModel, []string{"llm", "model", "token", "completion"}},
	{CategoryNetwork, []string{"network", "dns", "socket", "no route", "unreachable"}},
	{CategorySystem, []string{"memory", "disk", "cpu", "permission", "file not found"}},
}

// fatalPatterns mark resource exhaustion and exhausted-retry conditions that
// no strategy can recover from.
var fatalPatterns = []string{
	"out of memory",
	"no space left",
	"too many open files",
	"resource exhausted",
	"retries exhausted",
	"max retries",
}

// Classify maps an error plus its free-text description onto a category and
// severity level. Matching is case-insensitive over both texts combined.
func Classify(err error, msg string) (Category, Level) {
	text := msg
	if err != nil {
		text = err.Error() + " " + msg
	}
	lower := strings.ToLower(text)

	category := CategorySystem
	for _, entry := range classifyTable {
		if containsAny(lower, entry.patterns) {
			category = entry.category
			break
		}
	}
	return category, determineLevel(lower, category)
}

func determineLevel(lower string, category Category) Level {
	if containsAny(lower, fatalPatterns) {
		return LevelFatal
	}
	switch category {
	case CategoryConnection, CategoryCache, CategoryModel, CategoryNetwork:
		return LevelError
	case CategoryAPI, CategorySpeech:
		return LevelWarn
	default:
		if strings.Contains(lower, "timeout") || strings.Contains(lower, "temporary") {
			return LevelWarn
		}
		return LevelError
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
