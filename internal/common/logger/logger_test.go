package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "search-listings"})

	log.Info("search completed", map[string]interface{}{"resultType": "exact"})
	log.WithError(errors.New("boom")).Error("store failed", nil)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "search-listings", ctx["taskType"])
		assert.Equal(t, "exact", ctx["resultType"])
		assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	}
}

func TestMapToZapFields_Empty(t *testing.T) {
	assert.Nil(t, mapToZapFields(nil))
}

func TestNewWithOutput_BadPathFallsBackToNop(t *testing.T) {
	l := NewWithOutput("info", "json", "/nonexistent-dir/for/sure/log.txt")
	assert.NotNil(t, l)
}

func TestContextWithFields_Merges(t *testing.T) {
	assert.Nil(t, FieldsFromContext(context.Background()))

	ctx := ContextWithFields(context.Background(), map[string]interface{}{"requestId": "req-1"})
	ctx = ContextWithFields(ctx, map[string]interface{}{"jobKey": int64(7)})

	assert.Equal(t, map[string]interface{}{"requestId": "req-1", "jobKey": int64(7)}, FieldsFromContext(ctx))
}
