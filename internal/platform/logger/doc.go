// Package logger provides structured logging functionality for the application.
//
// It builds JSON log/slog loggers with a configurable level and carries
// request-scoped loggers (with their trace id) through context.Context.
package logger
