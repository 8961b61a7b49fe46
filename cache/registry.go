package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// registryName is the flat index file maintained next to the blobs.
const registryName = "registry.yaml"

// registryFile is the YAML structure of the cache index.
type registryFile struct {
	Entries []entryRecord `yaml:"entries"`
	Version int           `yaml:"registry_version"`
}

// entryRecord is one indexed blob in YAML form.
type entryRecord struct {
	FetchedAt time.Time `yaml:"fetched_at"`
	URL       string    `yaml:"url"`
	Key       string    `yaml:"key"`
	Size      int64     `yaml:"size"`
}

func (f *registryFile) toEntries() []Entry {
	entries := make([]Entry, 0, len(f.Entries))
	for _, rec := range f.Entries {
		entries = append(entries, Entry{
			SourceURL:  rec.URL,
			StorageKey: rec.Key,
			ByteSize:   rec.Size,
			FetchedAt:  rec.FetchedAt,
		})
	}
	return entries
}

func recordsFromEntries(entries []Entry) *registryFile {
	f := &registryFile{Version: 1, Entries: make([]entryRecord, 0, len(entries))}
	for _, e := range entries {
		f.Entries = append(f.Entries, entryRecord{
			URL:       e.SourceURL,
			Key:       e.StorageKey,
			Size:      e.ByteSize,
			FetchedAt: e.FetchedAt,
		})
	}
	return f
}

// loadRegistry reads the full index. A missing file is an empty cache.
func (c *Cache) loadRegistry() ([]Entry, error) {
	path := filepath.Join(c.dir, registryName)
	data, err := os.ReadFile(path) // internal path, not user-controlled
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache registry: %w", err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding cache registry: %w", err)
	}
	return f.toEntries(), nil
}

// saveRegistry writes the full index back. The registry is a single
// serialized resource: read the set, compute, write the set.
func (c *Cache) saveRegistry(entries []Entry) error {
	data, err := yaml.Marshal(recordsFromEntries(entries))
	if err != nil {
		return fmt.Errorf("encoding cache registry: %w", err)
	}

	path := filepath.Join(c.dir, registryName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publishing cache registry: %w", err)
	}
	return nil
}
