package settings

import (
	"time"
)

type Settings struct {
	ClientName  string
	LogLevel    string
	LoggerType  string
	Language    string
	Version     string
	Commit      string
	StatsPrefix string

	Warnings      WarningsSettings
	HealthMonitor HealthMonitorSettings
	Tracing       TracingSettings
}

type WarningsSettings struct {
	HTTPListenAddress string
	AlertNotify       string
	// AlertNotifyInterval and AlertNotifyBurst limit how often the alert
	// command runs. A zero interval disables the limit.
	AlertNotifyInterval time.Duration
	AlertNotifyBurst    int
	// TranslationsFile is a JSON document of translations keyed by language.
	TranslationsFile string
	// PreRelease overrides the build-derived pre-release flag when set.
	PreRelease *bool
}

type HealthMonitorSettings struct {
	Enabled        bool
	Interval       time.Duration
	DataDir        string
	MinFreeDiskMB  int
	NTPServer      string
	NTPTimeout     time.Duration
	NTPRetries     int
	MaxClockOffset time.Duration
}

type TracingSettings struct {
	Enabled bool
	// CollectorURL is the host:port of an OTLP/HTTP collector.
	CollectorURL string
	SampleRate   float64
}
