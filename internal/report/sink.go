// Package report holds the user-facing reporting sink of an upload run.
//
// A Sink receives preformatted, leveled status lines from every stage of a run.
// Implementations must be safe for concurrent use; callers never check a result.
package report

import (
	"fmt"

	"go.uber.org/zap"
)

type Level string

const (
	LevelLog     Level = "log"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Sink interface {
	Log(msg string)
	Info(msg string)
	Warn(msg string)
	Success(msg string)
	Error(msg string)
}

// Emit dispatches msg to the method of s matching lvl.
func Emit(s Sink, lvl Level, msg string) {
	switch lvl {
	case LevelInfo:
		s.Info(msg)
	case LevelWarn:
		s.Warn(msg)
	case LevelSuccess:
		s.Success(msg)
	case LevelError:
		s.Error(msg)
	default:
		s.Log(msg)
	}
}

type safeSink struct {
	inner Sink
}

// Safe wraps s so that a panicking sink never takes the run down with it.
func Safe(s Sink) Sink {
	if s == nil {
		return Discard
	}
	if _, ok := s.(*safeSink); ok {
		return s
	}
	return &safeSink{inner: s}
}

func (s *safeSink) Log(msg string)     { s.call(LevelLog, msg) }
func (s *safeSink) Info(msg string)    { s.call(LevelInfo, msg) }
func (s *safeSink) Warn(msg string)    { s.call(LevelWarn, msg) }
func (s *safeSink) Success(msg string) { s.call(LevelSuccess, msg) }
func (s *safeSink) Error(msg string)   { s.call(LevelError, msg) }

func (s *safeSink) call(lvl Level, msg string) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Named("report").Errorw("reporting sink failed", "level", lvl, "panic", fmt.Sprint(r))
		}
	}()
	Emit(s.inner, lvl, msg)
}

type discard struct{}

func (discard) Log(string)     {}
func (discard) Info(string)    {}
func (discard) Warn(string)    {}
func (discard) Success(string) {}
func (discard) Error(string)   {}

// Discard drops every message.
var Discard Sink = discard{}
