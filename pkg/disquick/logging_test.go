package disquick_test

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nais/disquick/pkg/disquick"
)

func TestActionsFormatter(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	formatter := &disquick.ActionsFormatter{}

	for _, tt := range []struct {
		level    log.Level
		expected string
	}{
		{level: log.ErrorLevel, expected: "::error::activation failed\n"},
		{level: log.WarnLevel, expected: "::warning::activation failed\n"},
		{level: log.InfoLevel, expected: "[2024-03-01T12:00:00Z] activation failed\n"},
	} {
		t.Run(tt.level.String(), func(t *testing.T) {
			out, err := formatter.Format(&log.Entry{Level: tt.level, Time: ts, Message: "activation failed"})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	err := disquick.SetupLogging(disquick.Config{LogLevel: "debug", LogFormat: disquick.LogFormatJSON})
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	err = disquick.SetupLogging(disquick.Config{LogLevel: "debug", Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, log.ErrorLevel, log.GetLevel())

	err = disquick.SetupLogging(disquick.Config{LogLevel: "chatty"})
	assert.Error(t, err)
}
