package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("Console", func(t *testing.T) {
		l, err := New(&Config{Level: "info", Format: "console"})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zap.InfoLevel))
		assert.False(t, l.Core().Enabled(zap.DebugLevel))
	})

	t.Run("DebugJSON", func(t *testing.T) {
		l, err := New(&Config{Level: "debug", Format: "json"})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zap.DebugLevel))
	})

	t.Run("Warn", func(t *testing.T) {
		l, err := New(&Config{Level: "warn"})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zap.InfoLevel))
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		l, err := New(&Config{Level: "loud"})
		assert.Error(t, err)
		assert.Nil(t, l)
	})
}

func TestWithSession(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := WithSession(zap.New(core), "abc", "/saves/survival")
	l.Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["session"])
	assert.Equal(t, "/saves/survival", fields["world"])

	core, logs = observer.New(zap.InfoLevel)
	WithSession(zap.New(core), "", "").Info("bare")
	assert.Empty(t, logs.All()[0].ContextMap())
}
