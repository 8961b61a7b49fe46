package cache

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inlay-dev/inlay-core/schedule"
)

func testCache(t *testing.T, now *time.Time, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return *now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	c, err := New(t.TempDir(), opts...)
	require.NoError(t, err)
	return c
}

func TestLookupNotFound(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	c := testCache(t, &now)

	data, status, err := c.Lookup("http://example.com/feed", schedule.MustParse([]string{"8"}))
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
	assert.Nil(t, data)
}

func TestStoreThenLookupValid(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	c := testCache(t, &now)

	require.NoError(t, c.Store("http://example.com/feed", []byte("payload")))

	data, status, err := c.Lookup("http://example.com/feed", schedule.MustParse([]string{"8"}))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, status)
	assert.Equal(t, []byte("payload"), data)
}

func TestLookupStaleAfterDueInstantPasses(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	c := testCache(t, &now)

	require.NoError(t, c.Store("http://example.com/feed", []byte("payload")))

	// Advance past the next 20:00 refresh without re-storing.
	now = time.Date(2026, 3, 3, 21, 0, 0, 0, time.UTC)
	data, status, err := c.Lookup("http://example.com/feed", schedule.MustParse([]string{"20"}))
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, []byte("payload"), data, "stale bytes remain available as fallback")
}

// The daily-20:00 scenario: content fetched at 21:00 the previous day is
// still valid at 18:00 today, because the due instant is yesterday's 20:00.
func TestLookupValidAgainstYesterdaysDueInstant(t *testing.T) {
	now := time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)
	c := testCache(t, &now)
	require.NoError(t, c.Store("http://example.com/feed", []byte("B")))

	now = time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	data, status, err := c.Lookup("http://example.com/feed", schedule.MustParse([]string{"20"}))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, status)
	assert.Equal(t, []byte("B"), data)
}

func TestLookupAlwaysSpecReportsStale(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	c := testCache(t, &now)

	require.NoError(t, c.Store("http://example.com/feed", []byte("payload")))

	data, status, err := c.Lookup("http://example.com/feed", schedule.MustParse([]string{"always"}))
	require.NoError(t, err)
	assert.Equal(t, StatusStale, status, "always-spec forces refetch")
	assert.Equal(t, []byte("payload"), data, "entry stays available for degradation")
}

func TestStoreReplacesEntry(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	c := testCache(t, &now)

	require.NoError(t, c.Store("http://example.com/feed", []byte("old")))
	require.NoError(t, c.Store("http://example.com/feed", []byte("newer")))

	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 1, "replacement is remove-then-insert")

	data, status, err := c.Lookup("http://example.com/feed", schedule.MustParse([]string{"8"}))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, status)
	assert.Equal(t, []byte("newer"), data)
}

func TestStoreKeyedByNormalizedURL(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	c := testCache(t, &now)

	require.NoError(t, c.Store("HTTP://Example.COM/feed", []byte("payload")))

	data, status, err := c.Lookup("http://example.com/feed", schedule.MustParse([]string{"8"}))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, status)
	assert.Equal(t, []byte("payload"), data)
}

func TestStoreEvictsOldestFirst(t *testing.T) {
	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	c := testCache(t, &now, WithMaxBytes(30))

	require.NoError(t, c.Store("http://example.com/a", []byte(strings.Repeat("a", 10))))
	now = now.Add(time.Hour)
	require.NoError(t, c.Store("http://example.com/b", []byte(strings.Repeat("b", 10))))
	now = now.Add(time.Hour)
	require.NoError(t, c.Store("http://example.com/c", []byte(strings.Repeat("c", 10))))
	now = now.Add(time.Hour)
	require.NoError(t, c.Store("http://example.com/d", []byte(strings.Repeat("d", 15))))

	entries, err := c.List()
	require.NoError(t, err)

	var total int64
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		total += e.ByteSize
		urls = append(urls, e.SourceURL)
	}
	assert.LessOrEqual(t, total, int64(30), "total stays under cap when eviction is possible")
	assert.NotContains(t, urls, "http://example.com/a", "oldest entry evicted first")
	assert.NotContains(t, urls, "http://example.com/b")
	assert.Contains(t, urls, "http://example.com/c")
	assert.Contains(t, urls, "http://example.com/d", "incoming entry exempt from its own eviction pass")
}

func TestStoreOversizedEntryStillStored(t *testing.T) {
	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	c := testCache(t, &now, WithMaxBytes(10))

	big := []byte(strings.Repeat("x", 50))
	require.NoError(t, c.Store("http://example.com/huge", big))

	data, status, err := c.Lookup("http://example.com/huge", schedule.MustParse([]string{"8"}))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, status)
	assert.Equal(t, big, data, "the cap is a soft target, not a hard rejection")
}

func TestLookupMissingBlobIsCorruption(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	c, err := New(dir, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, c.Store("http://example.com/feed", []byte("payload")))

	// Simulate a crash that lost the blob but kept the registry line.
	blobs, err := filepath.Glob(filepath.Join(dir, "*.blob"))
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	require.NoError(t, os.Remove(blobs[0]))

	_, _, err = c.Lookup("http://example.com/feed", schedule.MustParse([]string{"8"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptEntry), "phantom registry line is corruption, not a miss")
}

func TestLookupSizeMismatchIsCorruption(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	c, err := New(dir, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, c.Store("http://example.com/feed", []byte("payload")))

	blobs, err := filepath.Glob(filepath.Join(dir, "*.blob"))
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	require.NoError(t, os.WriteFile(blobs[0], []byte("tampered-longer-content"), 0o644))

	_, _, err = c.Lookup("http://example.com/feed", schedule.MustParse([]string{"8"}))
	require.Error(t, err)

	var corrupt *CorruptEntryError
	assert.True(t, errors.As(err, &corrupt))
}
