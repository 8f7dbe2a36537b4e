package logging

import (
	"context"
	"log/slog"

	"streamlet/internal/services"
)

// WithContextAttrs returns a logger carrying any correlation identifiers
// present on ctx so every record from one operation lines up.
func WithContextAttrs(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	attrs := make([]any, 0, 3)
	if v, ok := services.OwnerIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("owner_id", v))
	}
	if v, ok := services.AssetIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("asset_id", v))
	}
	if v, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("request_id", v))
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
