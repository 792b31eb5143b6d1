package ulogger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ordishs/gocore"
	"github.com/peercoin/warnd/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withJSONLogs(t *testing.T) {
	t.Helper()

	gocore.Config().Set("PRETTY_LOGS", "false")
	t.Cleanup(func() {
		gocore.Config().Unset("PRETTY_LOGS")
	})
}

func TestLogLevels(t *testing.T) {
	withJSONLogs(t)

	tests := []struct {
		level           string
		expectedOutputs map[string]bool
	}{
		{
			level:           "DEBUG",
			expectedOutputs: map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true},
		},
		{
			level:           "INFO",
			expectedOutputs: map[string]bool{"DEBUG": false, "INFO": true, "WARN": true, "ERROR": true},
		},
		{
			level:           "WARN",
			expectedOutputs: map[string]bool{"DEBUG": false, "INFO": false, "WARN": true, "ERROR": true},
		},
		{
			level:           "ERROR",
			expectedOutputs: map[string]bool{"DEBUG": false, "INFO": false, "WARN": false, "ERROR": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer

			logger := ulogger.New("test-service", ulogger.WithLevel(tt.level), ulogger.WithWriter(&buf))

			logger.Debugf("DEBUG message")
			logger.Infof("INFO message")
			logger.Warnf("WARN message")
			logger.Errorf("ERROR message")

			output := buf.String()

			for _, lvl := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
				assert.Equal(t, tt.expectedOutputs[lvl], strings.Contains(output, lvl+" message"), "level %s", lvl)
			}
		})
	}
}

func TestJSONLoggingCarriesService(t *testing.T) {
	withJSONLogs(t)

	var buf bytes.Buffer

	logger := ulogger.New("healthmonitor", ulogger.WithWriter(&buf))
	logger.Warnf("disk space low: %d bytes free", 1024)

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))

	assert.Equal(t, "healthmonitor", entry["service"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "disk space low: 1024 bytes free", entry["message"])
}

func TestDuplicateKeepsOutputAndChangesLevel(t *testing.T) {
	withJSONLogs(t)

	var buf bytes.Buffer

	logger := ulogger.New("warnings", ulogger.WithWriter(&buf))
	dup := logger.Duplicate(ulogger.WithLevel("ERROR"))

	dup.Infof("suppressed")
	dup.Errorf("kept")
	logger.Infof("parent still logs info")

	output := buf.String()
	assert.NotContains(t, output, "suppressed")
	assert.Contains(t, output, "kept")
	assert.Contains(t, output, "parent still logs info")
}

func TestSetLogLevel(t *testing.T) {
	withJSONLogs(t)

	var buf bytes.Buffer

	logger := ulogger.New("warnings", ulogger.WithWriter(&buf), ulogger.WithLevel("ERROR"))
	logger.Infof("before")

	logger.SetLogLevel("DEBUG")
	logger.Debugf("after")

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
	assert.Equal(t, int(gocore.DEBUG), logger.LogLevel())
	assert.Equal(t, "DEBUG", ulogger.LogLevelString(logger.LogLevel()))
}

func TestLoggerTypeSelection(t *testing.T) {
	logger := ulogger.New("gc", ulogger.WithLoggerType("gocore"))
	_, ok := logger.(*ulogger.GoCoreLogger)
	assert.True(t, ok)

	logger = ulogger.New("zl")
	_, ok = logger.(*ulogger.ZLoggerWrapper)
	assert.True(t, ok)
}

func TestTestLoggerIsSilent(t *testing.T) {
	var logger ulogger.Logger = ulogger.TestLogger{}

	assert.NotPanics(t, func() {
		logger.Infof("nothing %s", "happens")
		logger.New("child").Errorf("still nothing")
		logger.Duplicate(ulogger.WithLevel("DEBUG")).Debugf("quiet")
	})
}

func TestPrettyLoggingFormatsConsoleLine(t *testing.T) {
	gocore.Config().Set("PRETTY_LOGS", "true")
	t.Cleanup(func() {
		gocore.Config().Unset("PRETTY_LOGS")
	})

	var buf bytes.Buffer

	logger := ulogger.New("warnings", ulogger.WithWriter(&buf))
	logger.Warnf("disk space low")

	line := buf.String()
	assert.Contains(t, line, "| WARN  |")
	assert.Contains(t, line, "| warnings| disk space low")
	assert.Contains(t, line, "ulogger/ulogger_test.go:", "the caller is the logging site, not the wrapper")
	assert.NotContains(t, line, "\x1b[", "buffers are not terminals")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	withJSONLogs(t)

	var buf bytes.Buffer

	logger := ulogger.New("warnings", ulogger.WithWriter(&buf), ulogger.WithLevel("chatty"))
	logger.Debugf("hidden")
	logger.Infof("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, int(gocore.INFO), logger.LogLevel())
}
