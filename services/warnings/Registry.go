// Package warnings keeps the node's user-facing warning conditions and renders
// them as a status line (concise) or a full list (verbose).
//
// The consensus engine, the system health monitor and the wallet report into a
// Registry through its setters. The UI and RPC layers read from it through
// GetWarnings.
package warnings

import (
	"sync"

	"github.com/peercoin/warnd/model"
	"github.com/peercoin/warnd/ulogger"
)

// Condition names a warning source. Conditions are ordered by priority, see
// conditions below.
type Condition string

const (
	ConditionPreRelease            Condition = "pre_release"
	ConditionMint                  Condition = "mint"
	ConditionMisc                  Condition = "misc"
	ConditionLargeWorkFork         Condition = "large_work_fork"
	ConditionLargeWorkInvalidChain Condition = "large_work_invalid_chain"
)

// AllConditions returns every condition from lowest to highest priority.
func AllConditions() []Condition {
	out := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		out = append(out, c.name)
	}

	return out
}

type condition struct {
	name    Condition
	active  func(r *Registry) bool
	message func(r *Registry) model.DisplayText
}

// conditions is evaluated in order, lowest priority first. The concise result
// is the message of the last active entry, so a new condition is added by
// inserting it at the position matching its precedence.
//
// All funcs are called with r.mu held.
var conditions = []condition{
	{
		name:   ConditionPreRelease,
		active: func(r *Registry) bool { return r.preRelease },
		message: func(r *Registry) model.DisplayText {
			return model.Translate(r.translator, msgPreRelease)
		},
	},
	{
		name:   ConditionMint,
		active: func(r *Registry) bool { return r.mintWarning != "" },
		message: func(r *Registry) model.DisplayText {
			return model.Translate(r.translator, r.mintWarning)
		},
	},
	{
		// misc warnings like out of disk space and clock is wrong
		name:   ConditionMisc,
		active: func(r *Registry) bool { return r.miscWarning != "" },
		message: func(r *Registry) model.DisplayText {
			return model.Untranslated(r.miscWarning)
		},
	},
	{
		name:   ConditionLargeWorkFork,
		active: func(r *Registry) bool { return r.largeWorkForkFound },
		message: func(r *Registry) model.DisplayText {
			return model.Translate(r.translator, msgLargeWorkFork)
		},
	},
	{
		// only reported when no large-work fork is, the two share a priority slot
		name:   ConditionLargeWorkInvalidChain,
		active: func(r *Registry) bool { return !r.largeWorkForkFound && r.largeWorkInvalidChainFound },
		message: func(r *Registry) model.DisplayText {
			return model.Translate(r.translator, msgLargeWorkInvalidChain)
		},
	},
}

// ActiveWarning is one rendered, currently active condition.
type ActiveWarning struct {
	Condition  Condition `json:"condition"`
	Message    string    `json:"message"`
	Translated string    `json:"translated"`
}

// Status is a consistent copy of the registry taken under a single lock.
type Status struct {
	// Sequence increases by one on every state change. Observers use it to
	// drop snapshots that arrive out of order.
	Sequence                   uint64          `json:"sequence"`
	PreRelease                 bool            `json:"preRelease"`
	MintWarning                string          `json:"mintWarning"`
	MiscWarning                string          `json:"miscWarning"`
	LargeWorkForkFound         bool            `json:"largeWorkForkFound"`
	LargeWorkInvalidChainFound bool            `json:"largeWorkInvalidChainFound"`
	Active                     []ActiveWarning `json:"active"`
	Concise                    string          `json:"concise"`
	Verbose                    string          `json:"verbose"`
}

// IsActive reports whether c is among the active conditions.
func (s Status) IsActive(c Condition) bool {
	for _, a := range s.Active {
		if a.Condition == c {
			return true
		}
	}

	return false
}

// Option configures a Registry.
type Option func(*Registry)

// WithPreRelease marks the running build as a pre-release. It cannot be
// changed after construction.
func WithPreRelease(preRelease bool) Option {
	return func(r *Registry) {
		r.preRelease = preRelease
	}
}

// WithTranslator sets the translator used for the verbose rendering.
func WithTranslator(t model.Translator) Option {
	return func(r *Registry) {
		r.translator = t
	}
}

func WithLogger(logger ulogger.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Registry holds the node's warning conditions. It is created once at
// startup and shared by reference. The zero value is not usable, use
// NewRegistry.
type Registry struct {
	mu sync.Mutex

	preRelease                 bool
	miscWarning                string
	mintWarning                string
	largeWorkForkFound         bool
	largeWorkInvalidChainFound bool

	sequence   uint64
	observers  []func(Status)
	translator model.Translator
	logger     ulogger.Logger
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger: ulogger.TestLogger{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// OnChange registers fn to be called with a fresh snapshot after every setter
// call that changes state. fn runs on the setter's goroutine after the lock
// has been released and may call back into the registry.
func (r *Registry) OnChange(fn func(Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = append(r.observers, fn)
}

// SetMiscWarning replaces the misc warning. An empty message clears it.
func (r *Registry) SetMiscWarning(message string) {
	r.update(func() *change {
		if r.miscWarning == message {
			return nil
		}

		r.miscWarning = message

		return &change{ConditionMisc, message != "", message}
	})
}

// CompareAndSwapMiscWarning replaces the misc warning with message only if it
// currently equals old, and reports whether it did.
func (r *Registry) CompareAndSwapMiscWarning(old, message string) bool {
	swapped := false

	r.update(func() *change {
		if r.miscWarning != old {
			return nil
		}

		swapped = true

		if old == message {
			return nil
		}

		r.miscWarning = message

		return &change{ConditionMisc, message != "", message}
	})

	return swapped
}

// SetMintWarning replaces the minting warning. An empty message clears it.
func (r *Registry) SetMintWarning(message string) {
	r.update(func() *change {
		if r.mintWarning == message {
			return nil
		}

		r.mintWarning = message

		return &change{ConditionMint, message != "", message}
	})
}

func (r *Registry) SetLargeWorkForkFound(active bool) {
	r.update(func() *change {
		if r.largeWorkForkFound == active {
			return nil
		}

		r.largeWorkForkFound = active

		return &change{ConditionLargeWorkFork, active, msgLargeWorkFork}
	})
}

func (r *Registry) GetLargeWorkForkFound() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.largeWorkForkFound
}

func (r *Registry) SetLargeWorkInvalidChainFound(active bool) {
	r.update(func() *change {
		if r.largeWorkInvalidChainFound == active {
			return nil
		}

		r.largeWorkInvalidChainFound = active

		return &change{ConditionLargeWorkInvalidChain, active, msgLargeWorkInvalidChain}
	})
}

func (r *Registry) GetLargeWorkInvalidChainFound() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.largeWorkInvalidChainFound
}

// GetWarnings renders the active warnings. In concise mode only the highest
// priority message is returned, in its original form. In verbose mode every
// active message is returned in its translated form, lowest priority first,
// joined by WarningSeparator. Either way "" means there is nothing to show.
func (r *Registry) GetWarnings(verbose bool) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.activeLocked()
	if verbose {
		return renderVerbose(active)
	}

	return renderConcise(active)
}

// Snapshot returns every field and both renderings from one lock acquisition.
func (r *Registry) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

// change describes a field transition, logged once the lock is released.
type change struct {
	condition Condition
	active    bool
	message   string
}

// update runs fn under the lock. fn returns nil when it left the state untouched.
func (r *Registry) update(fn func() *change) {
	r.mu.Lock()

	c := fn()
	if c == nil {
		r.mu.Unlock()
		return
	}

	r.sequence++
	status := r.snapshotLocked()

	observers := make([]func(Status), len(r.observers))
	copy(observers, r.observers)

	r.mu.Unlock()

	r.logChange(*c)

	for _, observer := range observers {
		observer(status)
	}
}

func (r *Registry) activeLocked() []ActiveWarning {
	active := make([]ActiveWarning, 0, len(conditions))

	for _, c := range conditions {
		if !c.active(r) {
			continue
		}

		text := c.message(r)
		active = append(active, ActiveWarning{
			Condition:  c.name,
			Message:    text.Original,
			Translated: text.Translated,
		})
	}

	return active
}

func (r *Registry) snapshotLocked() Status {
	active := r.activeLocked()

	return Status{
		Sequence:                   r.sequence,
		PreRelease:                 r.preRelease,
		MintWarning:                r.mintWarning,
		MiscWarning:                r.miscWarning,
		LargeWorkForkFound:         r.largeWorkForkFound,
		LargeWorkInvalidChainFound: r.largeWorkInvalidChainFound,
		Active:                     active,
		Concise:                    renderConcise(active),
		Verbose:                    renderVerbose(active),
	}
}

func (r *Registry) logChange(c change) {
	if c.active {
		r.logger.Warnf("[Warnings] %s raised: %s", c.condition, c.message)
		return
	}

	r.logger.Infof("[Warnings] %s cleared", c.condition)
}

func renderConcise(active []ActiveWarning) string {
	if len(active) == 0 {
		return ""
	}

	return active[len(active)-1].Message
}

func renderVerbose(active []ActiveWarning) string {
	texts := make([]model.DisplayText, 0, len(active))
	for _, a := range active {
		texts = append(texts, model.DisplayText{Original: a.Message, Translated: a.Translated})
	}

	return model.JoinDisplayText(texts, WarningSeparator).Translated
}
