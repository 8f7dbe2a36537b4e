// Package logging builds the slog loggers used across streamlet: a console
// handler for interactive use, a JSON handler for machine consumption, and
// helpers for component-scoped loggers and test no-ops.
package logging
