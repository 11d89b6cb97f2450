package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { _ = Configure("info", false) })

	require.NoError(t, Configure("debug", true))
	assert.True(t, L.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Configure("warn", false))
	assert.False(t, L.Core().Enabled(zapcore.InfoLevel))

	assert.Error(t, Configure("loud", false))
}

func TestWithComponent(t *testing.T) {
	assert.NotNil(t, WithComponent("ledger"))
}
