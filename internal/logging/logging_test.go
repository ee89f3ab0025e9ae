package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		want  zap.AtomicLevel
	}{
		{"default", false, zap.NewAtomicLevelAt(zap.ErrorLevel)},
		{"debug", true, zap.NewAtomicLevelAt(zap.DebugLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.debug)
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.Equal(t, tt.debug, logger.Core().Enabled(zap.DebugLevel))
			assert.Equal(t, tt.debug, logger.Core().Enabled(zap.WarnLevel))
			assert.True(t, logger.Core().Enabled(zap.ErrorLevel))
		})
	}
}

func TestWithOperation(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	WithOperation(logger, "predict", "cat.jpg").Info("done")
	WithOperation(logger, "load", "").Info("done")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "predict", entries[0].ContextMap()["operation"])
	assert.Equal(t, "cat.jpg", entries[0].ContextMap()["image"])
	assert.NotContains(t, entries[1].ContextMap(), "image")
}

func TestOperationError(t *testing.T) {
	base := errors.New("boom")

	err := NewOperationError("load image", "a.png", base)
	assert.EqualError(t, err, "load image (a.png): boom")
	assert.ErrorIs(t, err, base)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "load image", opErr.Operation)

	assert.EqualError(t, NewOperationError("predict", "", base), "predict: boom")
	assert.NoError(t, NewOperationError("predict", "", nil))

	var nilErr *OperationError
	assert.Empty(t, nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}
