package pulsechat

import "github.com/rs/zerolog"

// Logger is a minimal logging interface accepted by the SDK.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// noopLogger discards all logs.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	L zerolog.Logger
}

func (z ZerologLogger) Debug(msg string, fields map[string]any) { emit(z.L.Debug(), msg, fields) }
func (z ZerologLogger) Info(msg string, fields map[string]any)  { emit(z.L.Info(), msg, fields) }
func (z ZerologLogger) Warn(msg string, fields map[string]any)  { emit(z.L.Warn(), msg, fields) }
func (z ZerologLogger) Error(msg string, fields map[string]any) { emit(z.L.Error(), msg, fields) }

func emit(ev *zerolog.Event, msg string, fields map[string]any) {
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}
