package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, test := range []struct {
		level, format string
		want          zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel},
		{"INFO", "json", zapcore.InfoLevel},
		{"warn", "", zapcore.WarnLevel},
	} {
		l, err := New(test.level, test.format)
		require.NoError(t, err)
		require.True(t, l.Core().Enabled(test.want))
		require.False(t, l.Core().Enabled(test.want-1))
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)
	_, err = New("info", "xml")
	require.Error(t, err)
}
