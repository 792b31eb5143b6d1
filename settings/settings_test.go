package settings

import (
	"testing"
	"time"

	"github.com/peercoin/warnd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// check settings object is initialised
func TestInitialiseSettings(t *testing.T) {
	tSettings := NewSettings()

	require.NotNil(t, tSettings)
	assert.Equal(t, "localhost:8099", tSettings.Warnings.HTTPListenAddress)
	assert.Equal(t, time.Minute, tSettings.HealthMonitor.Interval)
	assert.Equal(t, uint64(50*1024*1024), tSettings.HealthMonitor.MinFreeDiskBytes())
	assert.Equal(t, 70*time.Minute, tSettings.HealthMonitor.MaxClockOffset)
	assert.Empty(t, tSettings.HealthMonitor.NTPServer)
	assert.Equal(t, 3, tSettings.HealthMonitor.NTPRetries)
	assert.Empty(t, tSettings.Warnings.TranslationsFile)
	assert.Equal(t, time.Minute, tSettings.Warnings.AlertNotifyInterval)
	assert.Equal(t, 3, tSettings.Warnings.AlertNotifyBurst)
	assert.False(t, tSettings.Tracing.Enabled)
	assert.InDelta(t, 0.01, tSettings.Tracing.SampleRate, 1e-9)
	assert.Nil(t, tSettings.Warnings.PreRelease)
	require.NoError(t, tSettings.Validate())
}

func TestSettingsFromEnvironment(t *testing.T) {
	t.Setenv("warnings_httpListenAddress", ":9100")
	t.Setenv("healthmonitor_minFreeDiskMB", "10")
	t.Setenv("healthmonitor_interval", "15s")
	t.Setenv("warnings_preRelease", "true")
	t.Setenv("warnings_translationsFile", "/etc/warnd/translations.json")
	t.Setenv("healthmonitor_ntpRetries", "5")

	tSettings := NewSettings()

	assert.Equal(t, ":9100", tSettings.Warnings.HTTPListenAddress)
	assert.Equal(t, uint64(10*1024*1024), tSettings.HealthMonitor.MinFreeDiskBytes())
	assert.Equal(t, 15*time.Second, tSettings.HealthMonitor.Interval)
	require.NotNil(t, tSettings.Warnings.PreRelease)
	assert.True(t, *tSettings.Warnings.PreRelease)
	assert.Equal(t, "/etc/warnd/translations.json", tSettings.Warnings.TranslationsFile)
	assert.Equal(t, 5, tSettings.HealthMonitor.NTPRetries)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{"defaults", func(s *Settings) {}, false},
		{"no listen address", func(s *Settings) { s.Warnings.HTTPListenAddress = "" }, true},
		{"zero interval", func(s *Settings) { s.HealthMonitor.Interval = 0 }, true},
		{"zero clock offset", func(s *Settings) { s.HealthMonitor.MaxClockOffset = 0 }, true},
		{"no data dir", func(s *Settings) { s.HealthMonitor.DataDir = "" }, true},
		{"negative free disk space", func(s *Settings) { s.HealthMonitor.MinFreeDiskMB = -1 }, true},
		{"zero free disk space", func(s *Settings) { s.HealthMonitor.MinFreeDiskMB = 0 }, false},
		{"negative ntp retries", func(s *Settings) { s.HealthMonitor.NTPRetries = -1 }, true},
		{"alert burst below one", func(s *Settings) { s.Warnings.AlertNotifyBurst = 0 }, true},
		{"alert limit disabled ignores burst", func(s *Settings) {
			s.Warnings.AlertNotifyInterval = 0
			s.Warnings.AlertNotifyBurst = 0
		}, false},
		{"tracing sample rate above one", func(s *Settings) {
			s.Tracing.Enabled = true
			s.Tracing.SampleRate = 1.5
		}, true},
		{"tracing without collector", func(s *Settings) {
			s.Tracing.Enabled = true
			s.Tracing.CollectorURL = ""
		}, true},
		{"monitor disabled ignores its fields", func(s *Settings) {
			s.HealthMonitor.Enabled = false
			s.HealthMonitor.Interval = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tSettings := NewSettings()
			tt.mutate(tSettings)

			err := tSettings.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfiguration))
		})
	}
}

func TestIsPreRelease(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name     string
		version  string
		override *bool
		expect   bool
	}{
		{"dev build", "", nil, true},
		{"release", "1.2.3", nil, false},
		{"release with v", "v0.16.0", nil, false},
		{"release candidate", "0.16.0-rc1", nil, true},
		{"garbage", "not-a-version", nil, true},
		{"override on", "1.2.3", &yes, true},
		{"override off", "", &no, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tSettings := NewSettings()
			tSettings.Version = tt.version
			tSettings.Warnings.PreRelease = tt.override

			assert.Equal(t, tt.expect, tSettings.IsPreRelease())
		})
	}
}

func TestNegativeMinFreeDiskFromEnvironment(t *testing.T) {
	t.Setenv("healthmonitor_minFreeDiskMB", "-1")

	tSettings := NewSettings()

	assert.Equal(t, -1, tSettings.HealthMonitor.MinFreeDiskMB)
	assert.Equal(t, uint64(0), tSettings.HealthMonitor.MinFreeDiskBytes(), "a negative value never wraps around")

	err := tSettings.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
	assert.Contains(t, err.Error(), "healthmonitor_minFreeDiskMB")
}
