package handler

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/inlay-dev/inlay-core/handler/engine"
	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/manifest"
	"github.com/inlay-dev/inlay-core/handler/ports"
	"github.com/inlay-dev/inlay-core/handler/values"
	"github.com/inlay-dev/inlay-core/report"
)

// Run scopes one document execution. It memoizes every lifecycle stage per
// handler name, so resolving the same name repeatedly within a run is cheap
// and side-effect-free after the first pass. Runs are not safe for
// concurrent use; create one per execution.
type Run struct {
	m       *Manager
	collect *report.Collector

	gateOutcome   map[string]error
	compatOutcome map[string]error
	updateOutcome map[string]error
	updateDone    map[string]bool
	loaded        map[string]engine.Instance
	fetched       map[string][]byte
}

// NewRun starts a fresh per-execution context.
func (m *Manager) NewRun() *Run {
	return &Run{
		m:             m,
		collect:       report.NewCollector(),
		gateOutcome:   make(map[string]error),
		compatOutcome: make(map[string]error),
		updateOutcome: make(map[string]error),
		updateDone:    make(map[string]bool),
		loaded:        make(map[string]engine.Instance),
		fetched:       make(map[string][]byte),
	}
}

// Report returns the failures collected during this run.
func (r *Run) Report() *report.Collector {
	return r.collect
}

// Resolve takes a handler name through the full lifecycle and returns a
// ready instance. Failures come back as the typed errors in
// handler/entities; recoverable degradations are additionally collected in
// the run's report.
func (r *Run) Resolve(ctx context.Context, name values.Name) (engine.Instance, error) {
	key := name.Key()

	if err := r.checkGate(ctx, name); err != nil {
		return nil, err
	}

	if inst, ok := r.loaded[key]; ok {
		return inst, nil
	}
	if err := r.compatOutcome[key]; err != nil {
		return nil, err
	}

	desc, err := r.m.repository.Find(ctx, name)
	installed := err == nil
	if err != nil && !errors.Is(err, entities.ErrHandlerNotFound) {
		return nil, fmt.Errorf("locating handler %s: %w", name, err)
	}

	// Incompatible code is never loaded, no matter what the registry has.
	if installed && !desc.CompatibleWith(r.m.protocol) {
		cerr := &entities.IncompatibleError{
			Name:     name,
			Declared: desc.Protocol(),
			Required: r.m.protocol,
		}
		r.compatOutcome[key] = cerr
		r.collect.Fatal(key, cerr)
		return nil, cerr
	}

	if r.updateDone[key] {
		if err := r.updateOutcome[key]; err != nil {
			return nil, err
		}
	} else {
		r.updateDone[key] = true
		if err := r.updatePhase(ctx, name, desc, installed); err != nil {
			r.updateOutcome[key] = err
			return nil, err
		}
	}

	return r.load(ctx, name)
}

// checkGate asks the usage gate once per run per name.
func (r *Run) checkGate(ctx context.Context, name values.Name) error {
	key := name.Key()
	if outcome, asked := r.gateOutcome[key]; asked {
		return outcome
	}
	if r.m.gate == nil {
		r.gateOutcome[key] = nil
		return nil
	}
	if err := r.m.gate.Authorize(ctx, name); err != nil {
		rejected := &entities.GateRejectedError{Name: name, Reason: err}
		r.gateOutcome[key] = rejected
		r.collect.Fatal(key, rejected)
		return rejected
	}
	r.gateOutcome[key] = nil
	return nil
}

// updatePhase decides whether to contact the registry and, if an update is
// found and consented to, downloads and installs it. A nil return means
// resolution continues with whatever is installed locally.
func (r *Run) updatePhase(ctx context.Context, name values.Name, desc *entities.Descriptor, installed bool) error {
	if r.m.registry == nil {
		return nil
	}
	key := name.Key()

	if !installed {
		// Nothing local. The kind query gates everything after it: without
		// an answer there is no way to place or vet the handler.
		if _, err := r.m.registry.QueryType(ctx, name); err != nil {
			if errors.Is(err, entities.ErrHandlerNotFound) {
				r.m.markChecked(name, values.UpdateFunctional, values.UpdateBugfix)
				r.collect.Fatal(key, err)
				return err
			}
			return fmt.Errorf("handler %s: registry type query: %w", name, err)
		}

		info, err := r.m.registry.QueryLatestVersion(ctx, name, r.m.protocol, false, values.Version{})
		if err != nil {
			r.degrade(key, err)
			return nil
		}
		if !info.Found || !info.Update {
			r.m.markChecked(name, values.UpdateFunctional, values.UpdateBugfix)
			return nil
		}
		return r.download(ctx, name, values.Version{}, info, false)
	}

	functionalDue := r.m.checkUpdates &&
		r.m.checkDue(stateKey(name, values.UpdateFunctional), r.m.functionalInterval)
	bugfixDue := (r.m.checkUpdates || r.m.autoBugfix) &&
		r.m.checkDue(stateKey(name, values.UpdateBugfix), r.m.bugfixInterval)

	if functionalDue {
		// The unrestricted query returns the newest version outright, so its
		// answer settles the bugfix question too.
		info, err := r.m.registry.QueryLatestVersion(ctx, name, r.m.protocol, false, desc.Version())
		if err != nil {
			r.degrade(key, err)
			return nil
		}
		if !info.Found || !info.Update {
			r.m.markChecked(name, values.UpdateFunctional, values.UpdateBugfix)
			return nil
		}
		return r.download(ctx, name, desc.Version(), info, false)
	}

	if bugfixDue {
		info, err := r.m.registry.QueryLatestVersion(ctx, name, r.m.protocol, true, desc.Version())
		if err != nil {
			r.degrade(key, err)
			return nil
		}
		if !info.Found || !info.Update {
			r.m.markChecked(name, values.UpdateBugfix)
			return nil
		}
		return r.download(ctx, name, desc.Version(), info, true)
	}

	return nil
}

// download gates, fetches, and installs one found update. bugfixOnly marks
// which check kind this download completes.
func (r *Run) download(ctx context.Context, name values.Name, local values.Version, info ports.RemoteVersionInfo, bugfixOnly bool) error {
	key := name.Key()
	completed := func() {
		if bugfixOnly {
			r.m.markChecked(name, values.UpdateBugfix)
		} else {
			r.m.markChecked(name, values.UpdateFunctional, values.UpdateBugfix)
		}
	}

	allowed := r.m.autoDownload || (info.Kind == values.UpdateBugfix && r.m.autoBugfix)
	if !allowed && r.m.prompter != nil && r.m.prompter.IsInteractive() {
		consent, err := r.m.prompter.ConfirmDownload(name, local, info.Version, info.Kind)
		if err != nil {
			return fmt.Errorf("handler %s: consent prompt: %w", name, err)
		}
		allowed = consent
	}
	if !allowed {
		declined := &entities.UpdateDeclinedError{Name: name, Available: info.Version, Kind: info.Kind}
		r.degrade(key, declined)
		completed()
		return nil
	}

	code, err := r.fetchCode(ctx, name, info.Version)
	if err != nil {
		// Transient; the timestamps stay untouched so the next run retries.
		r.degrade(key, err)
		return nil
	}

	fetched, err := manifest.Parse(code)
	if err != nil {
		r.degrade(key, fmt.Errorf("fetched definition for %s: %w", name, err))
		return nil
	}

	if _, err := r.m.repository.Install(ctx, name, fetched.Kind(), code); err != nil {
		return fmt.Errorf("installing handler %s: %w", name, err)
	}
	r.m.logger.Info("handler updated",
		"handler", key, "version", info.Version.String(), "kind", info.Kind.String())
	completed()

	// Reload: the replaced definition must execute, not a stale in-memory
	// one.
	delete(r.loaded, key)
	return nil
}

// fetchCode downloads a definition at most once per run per name.
func (r *Run) fetchCode(ctx context.Context, name values.Name, version values.Version) ([]byte, error) {
	key := name.Key()
	if code, ok := r.fetched[key]; ok {
		return code, nil
	}
	code, err := r.m.registry.FetchCode(ctx, name, version)
	if err != nil {
		return nil, err
	}
	r.fetched[key] = code
	return code, nil
}

// load reads the installed definition and instantiates it. Absence
// everywhere is a clean not-found; any other load failure is fatal and
// carries the underlying diagnostic.
func (r *Run) load(ctx context.Context, name values.Name) (engine.Instance, error) {
	key := name.Key()
	if inst, ok := r.loaded[key]; ok {
		return inst, nil
	}

	desc, err := r.m.repository.Find(ctx, name)
	if err != nil {
		if errors.Is(err, entities.ErrHandlerNotFound) {
			r.collect.Fatal(key, err)
			return nil, err
		}
		return nil, fmt.Errorf("loading handler %s: %w", name, err)
	}

	data, err := os.ReadFile(desc.InstallPath())
	if err != nil {
		return nil, fmt.Errorf("loading handler %s: %w", name, err)
	}
	def, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading handler %s: %w", name, err)
	}

	inst, err := r.m.engines.Instantiate(def, engine.Deps{Fetcher: r.m.fetcher, Logger: r.m.logger})
	if err != nil {
		return nil, fmt.Errorf("loading handler %s: %w", name, err)
	}
	r.loaded[key] = inst
	return inst, nil
}

// degrade records a recoverable failure and logs it.
func (r *Run) degrade(tag string, err error) {
	r.collect.Recoverable(tag, err)
	r.m.logger.Warn("degraded handler resolution", "handler", tag, "error", err)
}
