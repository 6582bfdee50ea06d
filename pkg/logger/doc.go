// Package logger is a small factory over log/slog used by the alerting
// daemon and its packages. It standardizes the output format, level, and
// the static service attributes every component logs with.
package logger
