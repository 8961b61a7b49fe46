// Package handler implements the handler lifecycle: gate, protocol
// compatibility, update decision, consent-gated download, atomic install,
// reload, load, and instantiation.
package handler

import (
	"log/slog"
	"time"

	"github.com/inlay-dev/inlay-core/handler/engine"
	"github.com/inlay-dev/inlay-core/handler/ports"
	"github.com/inlay-dev/inlay-core/handler/values"
)

const (
	// FunctionalCheckInterval spaces registry checks for functional updates.
	FunctionalCheckInterval = 24 * time.Hour

	// BugfixCheckInterval spaces registry checks for bugfix updates.
	BugfixCheckInterval = 8 * time.Hour
)

// Manager owns the handler lifecycle configuration. Per-execution state
// lives in a Run; one Manager serves many runs.
type Manager struct {
	protocol   values.Version
	repository ports.Repository
	registry   ports.Registry
	state      ports.StateStore
	gate       ports.Gate
	prompter   ports.Prompter
	engines    *engine.Registry
	fetcher    ports.Fetcher
	logger     *slog.Logger
	now        func() time.Time

	checkUpdates bool
	autoDownload bool
	autoBugfix   bool

	functionalInterval time.Duration
	bugfixInterval     time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry sets the remote registry client. Without one, handlers
// resolve from the local install tree only.
func WithRegistry(r ports.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// WithStateStore sets the durable update-check state store.
func WithStateStore(s ports.StateStore) Option {
	return func(m *Manager) { m.state = s }
}

// WithGate sets the external usage-policy collaborator.
func WithGate(g ports.Gate) Option {
	return func(m *Manager) { m.gate = g }
}

// WithPrompter sets the download consent prompter.
func WithPrompter(p ports.Prompter) Option {
	return func(m *Manager) { m.prompter = p }
}

// WithFetcher sets the content fetcher handed to acquisition handlers.
func WithFetcher(f ports.Fetcher) Option {
	return func(m *Manager) { m.fetcher = f }
}

// WithEngines substitutes the engine registry.
func WithEngines(r *engine.Registry) Option {
	return func(m *Manager) { m.engines = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock substitutes the wall clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCheckUpdates enables periodic update checks for installed handlers.
func WithCheckUpdates(enabled bool) Option {
	return func(m *Manager) { m.checkUpdates = enabled }
}

// WithAutoDownload downloads every found update without prompting.
func WithAutoDownload(enabled bool) Option {
	return func(m *Manager) { m.autoDownload = enabled }
}

// WithAutoBugfix downloads bugfix updates without prompting, and keeps
// bugfix checks running even when update checks are otherwise disabled.
func WithAutoBugfix(enabled bool) Option {
	return func(m *Manager) { m.autoBugfix = enabled }
}

// WithCheckIntervals overrides the update-check spacing.
func WithCheckIntervals(functional, bugfix time.Duration) Option {
	return func(m *Manager) {
		m.functionalInterval = functional
		m.bugfixInterval = bugfix
	}
}

// NewManager creates a lifecycle manager. protocol is the runtime protocol
// version every loaded handler must declare.
func NewManager(protocol values.Version, repository ports.Repository, opts ...Option) *Manager {
	m := &Manager{
		protocol:           protocol,
		repository:         repository,
		engines:            engine.NewRegistry(),
		logger:             slog.Default(),
		now:                time.Now,
		functionalInterval: FunctionalCheckInterval,
		bugfixInterval:     BugfixCheckInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Protocol returns the runtime protocol version handlers must declare.
func (m *Manager) Protocol() values.Version {
	return m.protocol
}

// stateKey builds the durable timestamp key for one handler and check kind.
func stateKey(name values.Name, kind values.UpdateKind) string {
	return "handler." + name.Key() + "." + kind.String() + "_checked"
}

// checkDue reports whether the durable timestamp under key is absent,
// unreadable, or older than interval.
func (m *Manager) checkDue(key string, interval time.Duration) bool {
	if m.state == nil {
		return true
	}
	raw, ok, err := m.state.Get(key)
	if err != nil || !ok {
		return true
	}
	checked, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true
	}
	return m.now().Sub(checked) >= interval
}

// markChecked persists "now" under the handler's timestamp for each given
// check kind. Called only when a check definitively completed.
func (m *Manager) markChecked(name values.Name, kinds ...values.UpdateKind) {
	if m.state == nil {
		return
	}
	stamp := m.now().UTC().Format(time.RFC3339)
	for _, kind := range kinds {
		if err := m.state.Set(stateKey(name, kind), stamp); err != nil {
			m.logger.Warn("persisting update-check state failed",
				"handler", name.Key(), "kind", kind.String(), "error", err)
		}
	}
}
