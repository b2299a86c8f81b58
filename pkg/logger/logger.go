package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled logging interface used across the application.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})

	WithModule(module string) Logger
	WithFields(fields map[string]interface{}) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds a zap-backed logger. When logFile is non-empty, output is
// written there in addition to stderr.
func NewLogger(level, logFile string) Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if logFile != "" {
		if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			sinks = append(sinks, zapcore.AddSync(f))
		}
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), parseLevel(level))
	return &zapLogger{sugar: zap.New(core).Sugar()}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debugf(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *zapLogger) Infof(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *zapLogger) Warnf(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *zapLogger) Errorf(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }
func (l *zapLogger) Fatalf(format string, v ...interface{}) { l.sugar.Fatalf(format, v...) }

func (l *zapLogger) WithModule(module string) Logger {
	return &zapLogger{sugar: l.sugar.With("module", module)}
}

func (l *zapLogger) WithFields(fields map[string]interface{}) Logger {
	args := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &zapLogger{sugar: l.sugar.With(args...)}
}
