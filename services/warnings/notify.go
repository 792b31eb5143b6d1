package warnings

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/ulogger"
	"github.com/peercoin/warnd/util/tracing"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// safeChars is the set of characters allowed through to the alert command.
const safeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789 .,;-_/:?@()"

const alertCommandTimeout = time.Minute

// CommandRunner executes an alert command line.
type CommandRunner func(ctx context.Context, command string) error

func shellRunner(ctx context.Context, command string) error {
	//nolint:gosec // G204: the command comes from the operator's own configuration
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.NewProcessingError("alert command failed: %s", strings.TrimSpace(string(out)), err)
	}

	return nil
}

// AlertNotifier runs the operator's alert command when a warning is raised.
//
// The misc warning notifies at most once per process. The large-work
// conditions notify on every transition from inactive to active. Mint and
// pre-release warnings never notify. An optional rate limit caps how often the
// command runs when a condition flaps, suppressed alerts are still logged.
type AlertNotifier struct {
	logger  ulogger.Logger
	command string
	runner  CommandRunner
	limiter *rate.Limiter

	mu          sync.Mutex
	lastSeq     uint64
	prev        map[Condition]bool
	miscWarned  bool
	executed    atomic.Int64
	failed      atomic.Int64
	suppressed  atomic.Int64
	outstanding sync.WaitGroup
}

// NewAlertNotifier creates a notifier for command, in which %s is replaced by
// the quoted warning. An empty command only logs.
func NewAlertNotifier(logger ulogger.Logger, command string) *AlertNotifier {
	initPrometheusMetrics()

	return &AlertNotifier{
		logger:  logger,
		command: command,
		runner:  shellRunner,
		prev:    make(map[Condition]bool),
	}
}

// WithRunner replaces the shell runner, used by tests.
func (n *AlertNotifier) WithRunner(runner CommandRunner) *AlertNotifier {
	n.runner = runner
	return n
}

// WithRateLimit allows burst commands at once and one more every interval.
// A non-positive interval removes the limit.
func (n *AlertNotifier) WithRateLimit(interval time.Duration, burst int) *AlertNotifier {
	if interval <= 0 {
		n.limiter = nil
		return n
	}

	n.limiter = rate.NewLimiter(rate.Every(interval), burst)

	return n
}

// Subscribe attaches the notifier to reg.
func (n *AlertNotifier) Subscribe(reg *Registry) {
	reg.OnChange(n.Handle)
}

// Handle processes a registry snapshot. Snapshots older than the last one
// seen are ignored.
func (n *AlertNotifier) Handle(status Status) {
	n.mu.Lock()

	if status.Sequence <= n.lastSeq {
		n.mu.Unlock()
		return
	}

	n.lastSeq = status.Sequence

	var messages []string

	for _, a := range status.Active {
		wasActive := n.prev[a.Condition]

		switch a.Condition {
		case ConditionMisc:
			if !n.miscWarned {
				n.miscWarned = true

				messages = append(messages, a.Message)
			}
		case ConditionLargeWorkFork, ConditionLargeWorkInvalidChain:
			if !wasActive {
				messages = append(messages, a.Message)
			}
		}
	}

	for _, c := range AllConditions() {
		n.prev[c] = status.IsActive(c)
	}

	n.mu.Unlock()

	for _, msg := range messages {
		n.alert(msg)
	}
}

// Executed returns how many alert commands have completed successfully.
func (n *AlertNotifier) Executed() int64 {
	return n.executed.Load()
}

// Failed returns how many alert commands returned an error.
func (n *AlertNotifier) Failed() int64 {
	return n.failed.Load()
}

// Suppressed returns how many alerts the rate limit kept from running.
func (n *AlertNotifier) Suppressed() int64 {
	return n.suppressed.Load()
}

// Wait blocks until every started alert command has finished.
func (n *AlertNotifier) Wait() {
	n.outstanding.Wait()
}

func (n *AlertNotifier) alert(message string) {
	n.logger.Warnf("[AlertNotify] %s", message)

	if n.command == "" {
		return
	}

	if n.limiter != nil && !n.limiter.Allow() {
		n.suppressed.Inc()
		prometheusAlertsSuppressed.Inc()
		n.logger.Warnf("[AlertNotify] rate limit reached, not running the alert command")

		return
	}

	command := BuildAlertCommand(n.command, message)

	n.outstanding.Add(1)

	go func() {
		defer n.outstanding.Done()

		ctx, cancel := context.WithTimeout(context.Background(), alertCommandTimeout)
		defer cancel()

		ctx, _, endSpan := tracing.Tracer("alertnotify").Start(ctx, "AlertCommand",
			tracing.WithHistogram(prometheusAlertDuration),
			tracing.WithTag("message", SanitizeString(message)),
		)

		err := n.runner(ctx, command)
		endSpan(err)

		if err != nil {
			n.failed.Inc()
			n.logger.Errorf("[AlertNotify] %v", err)

			return
		}

		n.executed.Inc()
	}()
}

// BuildAlertCommand substitutes every %s in command with message, after
// stripping unsafe characters and wrapping it in single quotes.
func BuildAlertCommand(command, message string) string {
	return strings.ReplaceAll(command, "%s", "'"+SanitizeString(message)+"'")
}

// SanitizeString drops every character not in safeChars.
func SanitizeString(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if strings.ContainsRune(safeChars, r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}
