package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"chunk-mender/core/reconcile"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSink_Record(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := reconcile.NewLogSink(zap.New(core))

	sink.Record(context.Background(), reconcile.Event{
		Kind:   reconcile.EventMalformed,
		Coord:  c(2, -1),
		Box:    c(2, -1).Box(),
		Source: "world",
		Reason: errors.New("bad zlib header"),
	})
	sink.Record(context.Background(), reconcile.Event{
		Kind:  reconcile.EventRestored,
		Coord: c(0, 0),
		Box:   c(0, 0).Box(),
	})

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "Malformed chunk", entries[0].Message)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(32), fields["x"])
		assert.Equal(t, int64(-16), fields["z"])
		assert.Equal(t, "bad zlib header", fields["reason"])

		assert.Equal(t, "Missing chunk replaced with backup chunk", entries[1].Message)
		assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	}
}

func TestMultiSink_FansOutInOrder(t *testing.T) {
	var order []string
	a := reconcile.SinkFunc(func(context.Context, reconcile.Event) { order = append(order, "a") })
	b := reconcile.SinkFunc(func(context.Context, reconcile.Event) { order = append(order, "b") })

	reconcile.MultiSink{a, nil, b}.Record(context.Background(), reconcile.Event{})
	assert.Equal(t, []string{"a", "b"}, order)
}
