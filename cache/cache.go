// Package cache persists fetched content blobs keyed by source URL, with a
// flat YAML registry holding size and timestamp metadata. Freshness is judged
// against a handler's update-time schedule; total size is kept under a soft
// cap by evicting the oldest entries first.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/inlay-dev/inlay-core/netutil"
	"github.com/inlay-dev/inlay-core/schedule"
)

// Status classifies a Lookup result.
type Status int

const (
	// StatusNotFound means no entry exists for the URL.
	StatusNotFound Status = iota
	// StatusValid means the entry exists and is at least as fresh as the
	// schedule's due instant.
	StatusValid
	// StatusStale means the entry exists but a refresh is due. Stale bytes
	// remain available as a fallback when the refetch fails.
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusStale:
		return "stale"
	default:
		return "not-found"
	}
}

// Entry is the metadata for one cached blob. Entries are unique per
// normalized source URL and replaced wholesale, never partially updated.
type Entry struct {
	FetchedAt  time.Time
	SourceURL  string
	StorageKey string
	ByteSize   int64
}

// DefaultMaxBytes is the default soft size cap.
const DefaultMaxBytes = 20 * 1024 * 1024

// Cache is the content cache. Not safe for concurrent use; the registry
// file is read and written whole on every mutation.
type Cache struct {
	now      func() time.Time
	logger   *slog.Logger
	dir      string
	maxBytes int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxBytes sets the soft size cap for stored blobs.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithClock sets the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a content cache rooted at dir, creating it if needed.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	c := &Cache{
		dir:      dir,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Lookup returns the cached bytes for url and their freshness status under
// spec. An always-refresh spec reports stale even when an entry exists, so
// the caller refetches but can still fall back to the returned bytes. A
// registry record whose blob is missing or mis-sized is a CorruptEntryError,
// never a silent miss.
func (c *Cache) Lookup(url string, spec schedule.Spec) ([]byte, Status, error) {
	norm := netutil.NormalizeURL(url)

	entries, err := c.loadRegistry()
	if err != nil {
		return nil, StatusNotFound, err
	}

	entry, ok := findEntry(entries, norm)
	if !ok {
		return nil, StatusNotFound, nil
	}

	data, err := os.ReadFile(filepath.Join(c.dir, entry.StorageKey))
	if os.IsNotExist(err) {
		return nil, StatusNotFound, &CorruptEntryError{SourceURL: norm, Reason: "registry entry has no blob"}
	}
	if err != nil {
		return nil, StatusNotFound, fmt.Errorf("reading cached blob for %s: %w", norm, err)
	}
	if int64(len(data)) != entry.ByteSize {
		return nil, StatusNotFound, &CorruptEntryError{
			SourceURL: norm,
			Reason:    fmt.Sprintf("blob is %d bytes, registry says %d", len(data), entry.ByteSize),
		}
	}

	if spec.Always() {
		return data, StatusStale, nil
	}

	due := spec.DueInstant(c.now())
	if entry.FetchedAt.Before(due) {
		return data, StatusStale, nil
	}
	return data, StatusValid, nil
}

// Store replaces any existing entry for url with data, evicting the oldest
// other entries until the total is under the size cap. The incoming entry is
// exempt from its own eviction pass: a single blob larger than the cap is
// still stored.
func (c *Cache) Store(url string, data []byte) error {
	norm := netutil.NormalizeURL(url)

	entries, err := c.loadRegistry()
	if err != nil {
		return err
	}

	// Remove-then-insert: the old blob is dropped from the index before the
	// replacement appears, so stale bytes are never addressable twice.
	var obsolete []string
	if old, ok := findEntry(entries, norm); ok {
		obsolete = append(obsolete, old.StorageKey)
		entries = dropEntry(entries, norm)
	}

	key := storageKey(norm)
	if err := c.writeBlob(key, data); err != nil {
		return err
	}

	kept, evicted := c.evict(entries, int64(len(data)))
	for _, e := range evicted {
		obsolete = append(obsolete, e.StorageKey)
		c.logger.Info("evicting cache entry",
			"url", e.SourceURL,
			"size", netutil.FormatSize(e.ByteSize),
			"fetched_at", e.FetchedAt)
	}

	kept = append(kept, Entry{
		SourceURL:  norm,
		StorageKey: key,
		ByteSize:   int64(len(data)),
		FetchedAt:  c.now(),
	})

	// Publish the registry before deleting old blobs: a crash may orphan a
	// blob file but never leaves a registry line pointing at nothing.
	if err := c.saveRegistry(kept); err != nil {
		return err
	}
	for _, staleKey := range obsolete {
		if staleKey == key {
			continue
		}
		_ = os.Remove(filepath.Join(c.dir, staleKey))
	}
	return nil
}

// List returns all entries in the registry, oldest first.
func (c *Cache) List() ([]Entry, error) {
	entries, err := c.loadRegistry()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FetchedAt.Before(entries[j].FetchedAt)
	})
	return entries, nil
}

// evict returns the entries to keep and the entries to evict so that the kept
// total plus incoming stays under the cap. Oldest entries go first; eviction
// stops when nothing old is left even if incoming alone exceeds the cap.
func (c *Cache) evict(entries []Entry, incoming int64) (kept, evicted []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FetchedAt.Before(entries[j].FetchedAt)
	})

	total := incoming
	for _, e := range entries {
		total += e.ByteSize
	}

	i := 0
	for total > c.maxBytes && i < len(entries) {
		total -= entries[i].ByteSize
		i++
	}
	return entries[i:], entries[:i]
}

func (c *Cache) writeBlob(key string, data []byte) error {
	path := filepath.Join(c.dir, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publishing cache blob: %w", err)
	}
	return nil
}

func findEntry(entries []Entry, norm string) (Entry, bool) {
	for _, e := range entries {
		if e.SourceURL == norm {
			return e, true
		}
	}
	return Entry{}, false
}

func dropEntry(entries []Entry, norm string) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.SourceURL != norm {
			out = append(out, e)
		}
	}
	return out
}

// storageKey derives the blob filename for a normalized URL.
func storageKey(norm string) string {
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:16]) + ".blob"
}
