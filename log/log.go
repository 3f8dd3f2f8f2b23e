package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"
)

type ctxKey struct{}

// StructuredHandler is a slog.Handler that writes Google Cloud
// structured-logging JSON lines, one record per line.
type StructuredHandler struct {
	out   io.Writer
	attrs []slog.Attr
}

// NewStructuredHandler creates a handler writing to stdout.
func NewStructuredHandler() *StructuredHandler {
	return &StructuredHandler{out: os.Stdout}
}

// NewStructuredHandlerTo creates a handler writing to w.
func NewStructuredHandlerTo(w io.Writer) *StructuredHandler {
	return &StructuredHandler{out: w}
}

func (h *StructuredHandler) Handle(_ context.Context, r slog.Record) error {
	entry := map[string]any{
		"severity": r.Level.String(),
		"time":     time.Now().Format(time.RFC3339),
		"message":  r.Message,
	}

	for _, attr := range h.attrs {
		entry[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(attr slog.Attr) bool {
		entry[attr.Key] = attr.Value.Any()
		return true
	})

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := h.out.Write(jsonData); err != nil {
		return err
	}
	_, err = h.out.Write([]byte("\n"))
	return err
}

// Enabled always returns true, so all log levels are handled.
func (h *StructuredHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs returns a new handler with additional attributes.
func (h *StructuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &StructuredHandler{out: h.out, attrs: newAttrs}
}

// WithGroup returns the same handler, as grouping is not implemented.
func (h *StructuredHandler) WithGroup(_ string) slog.Handler {
	return h
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(NewStructuredHandler())
}
