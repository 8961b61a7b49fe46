// Package ports defines the boundary interfaces of the handler lifecycle:
// the remote registry, the on-disk install tree, the durable check-state
// store, and the external collaborators (usage gate, consent prompter,
// content fetcher).
package ports

import (
	"context"

	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/values"
	"github.com/inlay-dev/inlay-core/schedule"
)

// RemoteVersionInfo is the registry's answer to a latest-version query.
type RemoteVersionInfo struct {
	// Version is the newest compatible version, set only when Update is true.
	Version values.Version
	// Kind classifies the update relative to the caller's local version.
	Kind values.UpdateKind
	// Found reports whether the registry knows the handler at all.
	Found bool
	// Update reports whether a newer compatible version exists.
	Update bool
}

// Registry answers stateless queries against the remote handler database.
// Implementations convert every transport failure at this boundary; no raw
// transport errors cross into the lifecycle manager.
type Registry interface {
	// QueryType reports which kind the named handler has remotely.
	QueryType(ctx context.Context, name values.Name) (entities.Kind, error)

	// QueryLatestVersion reports the newest version compatible with the
	// given protocol. With bugfixOnly set, only versions sharing local's
	// functional component are considered.
	QueryLatestVersion(
		ctx context.Context,
		name values.Name,
		protocol values.Version,
		bugfixOnly bool,
		local values.Version,
	) (RemoteVersionInfo, error)

	// FetchCode downloads the handler definition for a version. The bytes
	// are structurally sniffed before being trusted; anything unrecognizable
	// is a server-content failure, never not-found.
	FetchCode(ctx context.Context, name values.Name, version values.Version) ([]byte, error)
}

// Repository manages the on-disk handler install tree: an ordered list of
// search roots, each with one subdirectory per kind, one file per handler.
type Repository interface {
	// Find locates an installed handler, searching kind directories in
	// entities.SearchOrder across all roots. First match wins. A handler
	// present nowhere is a *entities.NotFoundError.
	Find(ctx context.Context, name values.Name) (*entities.Descriptor, error)

	// Install removes the handler's previous file, if any, and atomically
	// writes the new definition: into the handler's existing directory, or
	// for a brand-new handler into the kind directory under the first root.
	Install(ctx context.Context, name values.Name, kind entities.Kind, code []byte) (*entities.Descriptor, error)

	// List discovers every installed handler across all roots.
	List(ctx context.Context) ([]*entities.Descriptor, error)
}

// StateStore is the durable string-keyed state surface holding per-handler
// last-checked timestamps. It may hold other subsystems' keys, which this
// core must not disturb.
type StateStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Gate is the external license/seat-policy collaborator. A non-nil error is
// a rejection and aborts the requesting tag.
type Gate interface {
	Authorize(ctx context.Context, name values.Name) error
}

// Prompter asks the operator for download consent when automatic download is
// not configured.
type Prompter interface {
	// IsInteractive reports whether a human can answer prompts.
	IsInteractive() bool

	// ConfirmDownload asks whether to download an available update.
	ConfirmDownload(name values.Name, installed, available values.Version, kind values.UpdateKind) (bool, error)
}

// Fetcher retrieves content for acquisition handlers, composing the content
// cache with an HTTP fetch and stale-fallback degradation.
type Fetcher interface {
	Fetch(ctx context.Context, url string, spec schedule.Spec) ([]byte, error)
}
