package report

import "go.uber.org/zap"

type zapSink struct {
	logger *zap.SugaredLogger
}

// NewZapSink reports through a zap logger. Log, info and success lines share the
// info level and are told apart by the "level" field.
func NewZapSink(logger *zap.SugaredLogger) Sink {
	return &zapSink{logger: logger}
}

func (z *zapSink) Log(msg string)     { z.logger.Infow(msg, "level", string(LevelLog)) }
func (z *zapSink) Info(msg string)    { z.logger.Infow(msg, "level", string(LevelInfo)) }
func (z *zapSink) Warn(msg string)    { z.logger.Warnw(msg, "level", string(LevelWarn)) }
func (z *zapSink) Success(msg string) { z.logger.Infow(msg, "level", string(LevelSuccess)) }
func (z *zapSink) Error(msg string)   { z.logger.Errorw(msg, "level", string(LevelError)) }
