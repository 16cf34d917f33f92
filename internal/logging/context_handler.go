package logging

import (
	"context"
	"log/slog"

	"bdresolve/internal/services"
)

// contextHandler surfaces the services context annotations (session id,
// file path, run id) as attributes on every record logged through a
// *Context method, so per-file and per-run identity rides along without
// each call site repeating it.
type contextHandler struct {
	inner slog.Handler
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if id, ok := services.SessionIDFromContext(ctx); ok {
		rec.AddAttrs(slog.String(FieldSession, id))
	}
	if path, ok := services.FilePathFromContext(ctx); ok {
		rec.AddAttrs(slog.String(FieldFile, path))
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		rec.AddAttrs(slog.String(FieldRunID, id))
	}
	return h.inner.Handle(ctx, rec)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{inner: h.inner.WithGroup(name)}
}
