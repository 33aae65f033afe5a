// Package slog adapts a *log/slog.Logger to proximity.Logger.
package slog

import (
	"context"
	stdslog "log/slog"

	"github.com/unkn0wn-root/proximity"
)

var _ proximity.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

func (s Logger) Debug(msg string, f proximity.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f proximity.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f proximity.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f proximity.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(lvl stdslog.Level, msg string, f proximity.Fields) {
	s.L.LogAttrs(context.Background(), lvl, msg, attrs(f)...)
}

func attrs(f proximity.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for k, v := range f {
		out = append(out, stdslog.Any(k, v))
	}
	return out
}
