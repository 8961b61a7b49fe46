// Package repository implements the on-disk handler install tree.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/manifest"
	"github.com/inlay-dev/inlay-core/handler/ports"
	"github.com/inlay-dev/inlay-core/handler/values"
)

// definitionExt is the file suffix of installed handler definitions.
const definitionExt = ".yaml"

// discoverPattern matches every definition under one search root.
const discoverPattern = "{Acquisition,Filter,Output}/*" + definitionExt

// FSRepository implements ports.Repository over an ordered list of search
// roots, each holding one subdirectory per handler kind and one file per
// handler name. Earlier roots shadow later ones.
type FSRepository struct {
	roots  []string
	logger *slog.Logger
}

var _ ports.Repository = (*FSRepository)(nil)

// Option configures an FSRepository.
type Option func(*FSRepository)

// WithLogger sets the repository's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *FSRepository) { r.logger = logger }
}

// NewFSRepository creates a repository over the given search roots. The
// first root is where new handlers are installed; it is created eagerly,
// later roots are optional read-only locations.
func NewFSRepository(roots []string, opts ...Option) (*FSRepository, error) {
	if len(roots) == 0 {
		home, _ := os.UserHomeDir()
		roots = []string{filepath.Join(home, ".inlay", "handlers")}
	}

	for _, kind := range entities.SearchOrder {
		dir := filepath.Join(roots[0], kind.DirName())
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create handler directory %s: %w", dir, err)
		}
	}

	r := &FSRepository{roots: roots, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Find locates an installed handler, searching kind directories in the
// fixed order across all roots. First match wins. Absence everywhere is a
// *entities.NotFoundError; an unreadable or malformed definition is not.
func (r *FSRepository) Find(_ context.Context, name values.Name) (*entities.Descriptor, error) {
	path, ok := r.locate(name)
	if !ok {
		return nil, &entities.NotFoundError{Name: name}
	}
	return r.describe(path)
}

// Install removes the handler's previous file, if any, and atomically
// writes the new definition. An already-installed handler keeps its
// directory; a brand-new one lands in the kind directory under the first
// root. A crash between write and rename leaves the previous version
// intact.
func (r *FSRepository) Install(_ context.Context, name values.Name, kind entities.Kind, code []byte) (*entities.Descriptor, error) {
	target := filepath.Join(r.roots[0], kind.DirName(), name.Key()+definitionExt)
	previous, installed := r.locate(name)
	if installed {
		target = filepath.Join(filepath.Dir(previous), name.Key()+definitionExt)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+name.Key()+"-*")
	if err != nil {
		return nil, fmt.Errorf("staging %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(code); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("staging %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("staging %s: %w", name, err)
	}

	// The previous artifact may live under another name's kind directory.
	// Dropping it before the rename keeps the one-file-per-name invariant;
	// the rename itself is the publish step.
	if installed && previous != target {
		if err := os.Remove(previous); err != nil && !os.IsNotExist(err) {
			os.Remove(tmpName)
			return nil, fmt.Errorf("removing previous %s: %w", name, err)
		}
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("installing %s: %w", name, err)
	}

	r.logger.Info("handler installed", "handler", name.Key(), "path", target)
	return r.describe(target)
}

// List discovers every installed handler across all roots. A name present
// in several roots appears once, from the earliest root.
func (r *FSRepository) List(_ context.Context) ([]*entities.Descriptor, error) {
	seen := make(map[string]bool)
	var found []*entities.Descriptor

	for _, root := range r.roots {
		matches, err := doublestar.Glob(os.DirFS(root), discoverPattern)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
		for _, rel := range matches {
			path := filepath.Join(root, filepath.FromSlash(rel))
			desc, err := r.describe(path)
			if err != nil {
				r.logger.Warn("skipping unreadable handler definition", "path", path, "error", err)
				continue
			}
			if seen[desc.Name().Key()] {
				continue
			}
			seen[desc.Name().Key()] = true
			found = append(found, desc)
		}
	}
	return found, nil
}

// locate returns the path of the handler's installed file, searching kind
// directories in order across all roots.
func (r *FSRepository) locate(name values.Name) (string, bool) {
	for _, root := range r.roots {
		for _, kind := range entities.SearchOrder {
			path := filepath.Join(root, kind.DirName(), name.Key()+definitionExt)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, true
			}
		}
	}
	return "", false
}

// describe parses an installed definition into a descriptor.
func (r *FSRepository) describe(path string) (*entities.Descriptor, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading handler definition %s: %w", path, err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("handler definition %s: %w", path, err)
	}
	return entities.NewDescriptor(m.Name(), m.Kind(), path, m.Version(), m.Protocol()), nil
}
