// Package notify emits fire-and-forget events toward the presentation
// layer over a websocket. There is no acknowledgement and no error surface:
// a missing or unreachable UI endpoint never affects a backup operation.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

// emitTimeout bounds a single emit so a hung UI endpoint cannot stall the
// operation that triggered it.
const emitTimeout = 5 * time.Second

// Emitter sends named events to the UI notification endpoint.
// A nil Emitter or one with an empty URL is a no-op.
type Emitter struct {
	url    string
	logger *slog.Logger
}

// New creates an Emitter targeting the given websocket URL.
// An empty URL disables emission.
func New(url string, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Emitter{url: url, logger: logger}
}

// Emit sends the event name as a single text message. Failures are logged
// and swallowed.
func (e *Emitter) Emit(name string) {
	if e == nil || e.url == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, e.url, nil)
	if err != nil {
		e.logger.Debug("ui notification endpoint unreachable",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)

		return
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(name)); err != nil {
		e.logger.Debug("ui notification write failed",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)

		conn.Close(websocket.StatusInternalError, "write failed")

		return
	}

	conn.Close(websocket.StatusNormalClosure, "")

	e.logger.Debug("ui notification sent", slog.String("event", name))
}
