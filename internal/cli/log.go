package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ghostcanvas/pkg/observability"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs an operation's completion with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs e.g. "Instrumented 12 elements (4ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by the root command, or
// log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// logHooks reports frame traffic and editing events through the logger.
type logHooks struct {
	logger *log.Logger
}

func installLogHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetProtocolHooks(h)
	observability.SetMaterializeHooks(h)
	observability.SetCacheHooks(h)
}

func (h logHooks) OnSend(_ context.Context, frameID, msgType string) {
	h.logger.Debug("→ frame", "frame", frameID, "type", msgType)
}

func (h logHooks) OnReceive(_ context.Context, frameID, msgType string) {
	h.logger.Debug("← frame", "frame", frameID, "type", msgType)
}

func (h logHooks) OnRequestResolved(_ context.Context, msgType, outcome string, d time.Duration) {
	h.logger.Debug("request resolved", "type", msgType, "outcome", outcome, "after", d.Round(time.Millisecond))
}

func (h logHooks) OnMaterializeStart(_ context.Context, nodeID string) {
	h.logger.Debug("materialize", "node", nodeID)
}

func (h logHooks) OnMaterializeComplete(_ context.Context, nodeID, file string, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("materialize failed", "node", nodeID, "err", err)
		return
	}
	h.logger.Info("materialized", "node", nodeID, "file", file, "took", d.Round(time.Millisecond))
}

func (h logHooks) OnReorder(_ context.Context, file, direction string, err error) {
	h.logger.Debug("reorder", "file", file, "direction", direction, "err", err)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}
