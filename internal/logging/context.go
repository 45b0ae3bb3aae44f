package logging

import (
	"context"

	"github.com/rs/zerolog"

	urlutil "github.com/aetherbrowser/aether/internal/domain/url"
)

// FromContext extracts the logger from context
// If no logger is found, returns a disabled logger (no-op)
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// Component returns a child of the context logger tagged with a
// component field. ctx itself is not modified, so a component passing ctx
// on to another one never produces a duplicated field.
func Component(ctx context.Context, name string) zerolog.Logger {
	return FromContext(ctx).With().Str("component", name).Logger()
}

// ForURL returns log extended with the request url and its host.
func ForURL(log zerolog.Logger, rawURL string) zerolog.Logger {
	return log.With().
		Str("url", rawURL).
		Str("host", urlutil.Host(rawURL)).
		Logger()
}
