package faults

import (
	"errors"
	"testing"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{CategoryConnection, "connection"},
		{CategoryCache, "cache"},
		{CategoryAPI, "api"},
		{CategorySpeech, "speech"},
		{CategoryModel, "model"},
		{CategoryNetwork, "network"},
		{CategorySystem, "system"},
		{Category(99), "system"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.category.String(); got != tt.want {
				t.Errorf("Category.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelFatal, "FATAL"},
		{LevelError, "ERROR"},
		{LevelWarn, "WARN"},
		{LevelInfo, "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyCategories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
		want Category
	}{
		{"websocket close", errors.New("websocket: close 1006 (abnormal closure)"), "read loop ended", CategoryConnection},
		{"disconnected", errors.New("upstream disconnected"), "", CategoryConnection},
		{"handshake", errors.New("handshake failed"), "", CategoryConnection},
		{"redis down", errors.New("redis: connection pool timeout"), "", CategoryConnection}, // "connection" wins over "redis"
		{"cache miss", errors.New("cache entry expired"), "", CategoryCache},
		{"rate limited", errors.New("429 too many requests"), "rate limit from collaborator", CategoryAPI},
		{"http status", errors.New("http 503 service unavailable"), "", CategoryAPI},
		{"speech", errors.New("audio recognition failed"), "", CategorySpeech},
		{"model tokens", errors.New("completion truncated: token budget"), "", CategoryModel},
		{"dns", errors.New("dns lookup failed"), "", CategoryNetwork},
		{"unreachable", errors.New("host unreachable"), "", CategoryNetwork},
		{"disk", errors.New("disk quota exceeded"), "", CategorySystem},
		{"no match", errors.New("something odd"), "", CategorySystem},
		{"nil error uses message", nil, "websocket read failed", CategoryConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Classify(tt.err, tt.msg)
			if got != tt.want {
				t.Errorf("Classify(%v, %q) category = %v, want %v", tt.err, tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassifyLevels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Level
	}{
		{"oom is fatal", errors.New("runtime: out of memory"), LevelFatal},
		{"disk full is fatal", errors.New("write: no space left on device"), LevelFatal},
		{"retries exhausted is fatal", errors.New("websocket reconnect: max retries reached"), LevelFatal},
		{"connection drop is error", errors.New("websocket: close 1006"), LevelError},
		{"cache fault is error", errors.New("cache backend flush failed"), LevelError},
		{"model fault is error", errors.New("model overloaded"), LevelError},
		{"api fault is warn", errors.New("http 503 from collaborator"), LevelWarn},
		{"speech fault is warn", errors.New("speech recognition degraded"), LevelWarn},
		{"system timeout is warn", errors.New("operation timeout while flushing"), LevelWarn},
		{"generic system is error", errors.New("unexpected state"), LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Classify(tt.err, "")
			if got != tt.want {
				t.Errorf("Classify(%v) level = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
