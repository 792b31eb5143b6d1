package settings

import (
	"strings"
	"time"

	"github.com/peercoin/warnd/errors"
	"golang.org/x/mod/semver"
)

// minDiskSpaceMB matches the full node's hard floor of 50MB below which block
// and undo files can no longer be flushed safely.
const minDiskSpaceMB = 50

func NewSettings() *Settings {
	return &Settings{
		ClientName:  getString("clientName", "Peercoin"),
		LogLevel:    getString("logLevel", "INFO"),
		LoggerType:  getString("logger_type", "zerolog"),
		Language:    getString("language", "en"),
		StatsPrefix: getString("stats_prefix", "/debug/"),
		Warnings: WarningsSettings{
			HTTPListenAddress:   getString("warnings_httpListenAddress", "localhost:8099"),
			AlertNotify:         getString("warnings_alertNotify", ""),
			AlertNotifyInterval: getDuration("warnings_alertNotifyInterval", time.Minute),
			AlertNotifyBurst:    getInt("warnings_alertNotifyBurst", 3),
			TranslationsFile:    getString("warnings_translationsFile", ""),
			PreRelease:          getOptionalBool("warnings_preRelease"),
		},
		HealthMonitor: HealthMonitorSettings{
			Enabled:        getBool("healthmonitor_enabled", true),
			Interval:       getDuration("healthmonitor_interval", time.Minute),
			DataDir:        getString("healthmonitor_dataDir", getString("dataFolder", "data")),
			MinFreeDiskMB:  getInt("healthmonitor_minFreeDiskMB", minDiskSpaceMB),
			NTPServer:      getString("healthmonitor_ntpServer", ""),
			NTPTimeout:     getDuration("healthmonitor_ntpTimeout", 5*time.Second),
			NTPRetries:     getInt("healthmonitor_ntpRetries", 3),
			MaxClockOffset: getDuration("healthmonitor_maxClockOffset", 70*time.Minute),
		},
		Tracing: TracingSettings{
			Enabled:      getBool("tracing_enabled", false),
			CollectorURL: getString("tracing_collectorURL", "localhost:4318"),
			SampleRate:   getFloat64("tracing_sampleRate", 0.01),
		},
	}
}

// Validate checks the values that would otherwise make a service misbehave at runtime.
func (s *Settings) Validate() error {
	if s.Warnings.HTTPListenAddress == "" {
		return errors.NewConfigurationError("warnings_httpListenAddress is required")
	}

	if s.HealthMonitor.Enabled {
		if s.HealthMonitor.Interval <= 0 {
			return errors.NewConfigurationError("healthmonitor_interval must be positive, got %s", s.HealthMonitor.Interval)
		}

		if s.HealthMonitor.MaxClockOffset <= 0 {
			return errors.NewConfigurationError("healthmonitor_maxClockOffset must be positive, got %s", s.HealthMonitor.MaxClockOffset)
		}

		if s.HealthMonitor.DataDir == "" {
			return errors.NewConfigurationError("healthmonitor_dataDir is required")
		}

		if s.HealthMonitor.MinFreeDiskMB < 0 {
			return errors.NewConfigurationError("healthmonitor_minFreeDiskMB must not be negative, got %d", s.HealthMonitor.MinFreeDiskMB)
		}

		if s.HealthMonitor.NTPRetries < 0 {
			return errors.NewConfigurationError("healthmonitor_ntpRetries must not be negative, got %d", s.HealthMonitor.NTPRetries)
		}
	}

	if s.Warnings.AlertNotifyInterval > 0 && s.Warnings.AlertNotifyBurst < 1 {
		return errors.NewConfigurationError("warnings_alertNotifyBurst must be at least 1, got %d", s.Warnings.AlertNotifyBurst)
	}

	if s.Tracing.Enabled {
		if s.Tracing.CollectorURL == "" {
			return errors.NewConfigurationError("tracing_collectorURL is required when tracing is enabled")
		}

		if s.Tracing.SampleRate < 0 || s.Tracing.SampleRate > 1 {
			return errors.NewConfigurationError("tracing_sampleRate must be between 0 and 1, got %v", s.Tracing.SampleRate)
		}
	}

	return nil
}

// MinFreeDiskBytes is the disk space threshold in bytes. Negative values,
// which Validate rejects, count as no threshold.
func (h HealthMonitorSettings) MinFreeDiskBytes() uint64 {
	if h.MinFreeDiskMB <= 0 {
		return 0
	}

	return uint64(h.MinFreeDiskMB) * 1024 * 1024
}

// IsPreRelease reports whether this build should carry the pre-release notice.
// An explicit warnings_preRelease setting wins, otherwise a missing, unparsable
// or semver pre-release version counts as pre-release.
func (s *Settings) IsPreRelease() bool {
	if s.Warnings.PreRelease != nil {
		return *s.Warnings.PreRelease
	}

	v := s.Version
	if v == "" {
		return true
	}

	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}

	if !semver.IsValid(v) {
		return true
	}

	return semver.Prerelease(v) != ""
}
