// Package healthmonitor watches the host for conditions that stop the node
// from working properly, low disk space and a wrong clock, and reports them
// as the misc warning.
package healthmonitor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ordishs/gocore"
	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/services/warnings"
	"github.com/peercoin/warnd/settings"
	"github.com/peercoin/warnd/ulogger"
	"github.com/peercoin/warnd/util/retry"
	"github.com/peercoin/warnd/util/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const msgDiskSpaceLow = "Disk space is too low!"

// ClockWarning is the misc warning raised when the local clock is off.
func ClockWarning(clientName string) string {
	return fmt.Sprintf("Please check that your computer's date and time are correct! If your clock is wrong, %s will not work properly.", clientName)
}

type Option func(*Monitor)

func WithDiskSpaceChecker(d DiskSpaceChecker) Option {
	return func(m *Monitor) {
		m.disk = d
	}
}

func WithClockOffsetSource(c ClockOffsetSource) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// Monitor periodically checks free disk space and the clock offset. The first
// failing check, disk before clock, becomes the registry's misc warning. Once
// both pass again the monitor clears the warning, unless something else has
// replaced it in the meantime.
type Monitor struct {
	logger     ulogger.Logger
	settings   settings.HealthMonitorSettings
	clientName string
	registry   *warnings.Registry
	stats      *gocore.Stat

	disk  DiskSpaceChecker
	clock ClockOffsetSource

	mu       sync.Mutex
	owned    string
	lastRun  time.Time
	lastErrs []error
}

func New(logger ulogger.Logger, tSettings *settings.Settings, registry *warnings.Registry, opts ...Option) *Monitor {
	m := &Monitor{
		logger:     logger,
		settings:   tSettings.HealthMonitor,
		clientName: tSettings.ClientName,
		registry:   registry,
		stats:      gocore.NewStat("healthmonitor"),
		disk:       StatfsDiskSpace{},
	}

	if tSettings.HealthMonitor.NTPServer != "" {
		m.clock = NTPClock{
			Server:  tSettings.HealthMonitor.NTPServer,
			Timeout: tSettings.HealthMonitor.NTPTimeout,
		}
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Monitor) Init(_ context.Context) error {
	if m.registry == nil {
		return errors.NewConfigurationError("[HealthMonitor] registry is required")
	}

	if m.settings.Enabled && m.settings.Interval <= 0 {
		return errors.NewConfigurationError("[HealthMonitor] interval must be positive, got %s", m.settings.Interval)
	}

	return nil
}

// Start runs the checks immediately and then every interval until ctx is done.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.settings.Enabled {
		m.logger.Infof("[HealthMonitor] disabled")
		<-ctx.Done()

		return nil
	}

	m.logger.Infof("[HealthMonitor] checking %s every %s", m.settings.DataDir, m.settings.Interval)

	ticker := time.NewTicker(m.settings.Interval)
	defer ticker.Stop()

	for {
		m.Check(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) Stop(_ context.Context) error {
	return nil
}

// Health is always live. It is ready once a round of checks has completed,
// check errors are reported but do not fail readiness.
func (m *Monitor) Health(_ context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings.Enabled && m.lastRun.IsZero() {
		return http.StatusServiceUnavailable, "no checks run yet", nil
	}

	if len(m.lastErrs) > 0 {
		return http.StatusOK, fmt.Sprintf("last check at %s had errors: %v", m.lastRun.Format(time.RFC3339), errors.Join(m.lastErrs...)), nil
	}

	return http.StatusOK, "OK", nil
}

// Check runs one round of checks, updates the registry and returns the
// warning now raised by the monitor, "" if none. A round interrupted by ctx
// leaves the registry as it was and returns the warning currently owned.
func (m *Monitor) Check(ctx context.Context) string {
	var errs []error

	warning, err := m.checkDisk()
	if err != nil {
		errs = append(errs, err)
	}

	if warning == "" {
		warning, err = m.checkClock(ctx)
		if err != nil {
			if errors.IsContextError(err) || ctx.Err() != nil {
				m.logger.Debugf("[HealthMonitor] check interrupted: %v", err)

				m.mu.Lock()
				defer m.mu.Unlock()

				return m.owned
			}

			errs = append(errs, err)
		}
	}

	for _, err := range errs {
		m.logger.Warnf("[HealthMonitor] check failed (%s), treating as passing: %v", errors.GetErrorCategory(err), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastRun = time.Now()
	m.lastErrs = errs

	switch {
	case warning != "":
		m.registry.SetMiscWarning(warning)
		m.owned = warning
	case m.owned != "":
		if !m.registry.CompareAndSwapMiscWarning(m.owned, "") {
			m.logger.Debugf("[HealthMonitor] misc warning was replaced, not clearing it")
		}

		m.owned = ""
	}

	return warning
}

func (m *Monitor) checkDisk() (string, error) {
	free, err := m.disk.FreeBytes(m.settings.DataDir)
	if err != nil {
		return "", err
	}

	if need := m.settings.MinFreeDiskBytes(); free < need {
		m.logger.Errorf("[HealthMonitor] only %d bytes free on %s, need %d", free, m.settings.DataDir, need)
		return msgDiskSpaceLow, nil
	}

	return "", nil
}

func (m *Monitor) checkClock(ctx context.Context) (string, error) {
	if m.clock == nil {
		return "", nil
	}

	ctx, span, endSpan := tracing.Tracer("healthmonitor").Start(ctx, "checkClock",
		tracing.WithParentStat(m.stats),
	)

	backoff := min(time.Second, m.settings.Interval/4)

	offset, err := retry.Retry(ctx, m.logger, func() (time.Duration, error) {
		return m.clock.Offset(ctx)
	},
		retry.WithRetryCount(m.settings.NTPRetries),
		retry.WithExponentialBackoff(),
		retry.WithBackoffDurationType(backoff),
		retry.WithMaxBackoff(m.settings.Interval/2),
		retry.WithRetryIf(errors.IsRetryableError),
		retry.WithMessage("[HealthMonitor] clock offset query failed"),
	)
	if err != nil {
		endSpan(err)
		return "", err
	}

	span.SetAttributes(attribute.String("offset", offset.String()))
	endSpan()

	if offset.Abs() > m.settings.MaxClockOffset {
		m.logger.Errorf("[HealthMonitor] local clock is off by %s", offset)
		return ClockWarning(m.clientName), nil
	}

	return "", nil
}
