// Package logging builds the structured logger and stage-tagged errors.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON logger writing to stderr. Only errors are logged
// unless debug is set, keeping stdout free for the score output.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	if debug {
		cfg.Level.SetLevel(zap.DebugLevel)
		cfg.Sampling = nil
	}
	return cfg.Build()
}

// WithOperation enriches the logger with the pipeline stage and the image it is working on.
func WithOperation(logger *zap.Logger, operation, imagePath string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if imagePath != "" {
		fields = append(fields, zap.String("image", imagePath))
	}
	return logger.With(fields...)
}
