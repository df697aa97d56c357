package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/df07/go-spectral-film/pkg/core"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info" or "warning"
}

// WebLogger implements core.Logger by sending messages to a console channel.
// Every message is also written to the server log tagged with the render id.
type WebLogger struct {
	renderID    string
	consoleChan chan<- ConsoleMessage
	base        *slog.Logger
}

// NewWebLogger creates a new web logger for a specific render
func NewWebLogger(renderID string, consoleChan chan<- ConsoleMessage, base *slog.Logger) core.Logger {
	return &WebLogger{
		renderID:    renderID,
		consoleChan: consoleChan,
		base:        base,
	}
}

func (wl *WebLogger) Debug(msg string, args ...any) { wl.log(slog.LevelDebug, "debug", msg, args) }
func (wl *WebLogger) Info(msg string, args ...any)  { wl.log(slog.LevelInfo, "info", msg, args) }
func (wl *WebLogger) Warn(msg string, args ...any)  { wl.log(slog.LevelWarn, "warning", msg, args) }

func (wl *WebLogger) log(level slog.Level, levelName, msg string, args []any) {
	if wl.base != nil {
		wl.base.Log(context.Background(), level, msg, append([]any{"render", wl.renderID}, args...)...)
	}

	// Send to web console if channel is available (non-blocking)
	if wl.consoleChan == nil {
		return
	}
	select {
	case wl.consoleChan <- ConsoleMessage{
		Message:   formatMessage(msg, args),
		Timestamp: time.Now(),
		Level:     levelName,
	}:
	default:
		// Channel full, skip (don't block)
	}
}

// formatMessage renders msg followed by its attributes as key=value pairs
func formatMessage(msg string, args []any) string {
	r := slog.NewRecord(time.Time{}, slog.LevelInfo, msg, 0)
	r.Add(args...)

	var b strings.Builder
	b.WriteString(msg)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	return b.String()
}
