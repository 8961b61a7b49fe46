package statestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.yaml")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	return store, path
}

func TestGetMissingFile(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	_, ok, err := store.Get("handler.slashdot.functional_checked")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetThenGet(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.NoError(t, store.Set("handler.slashdot.functional_checked", "2026-08-29T10:00:00Z"))

	value, ok, err := store.Get("handler.slashdot.functional_checked")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-08-29T10:00:00Z", value)
}

func TestEmptyValueIsPresent(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.NoError(t, store.Set("flag", ""))

	value, ok, err := store.Get("flag")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, value)
}

func TestSetPreservesUnrelatedKeys(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("other.subsystem.token: keep-me\n"), 0o600))

	require.NoError(t, store.Set("handler.weather.bugfix_checked", "2026-08-29T08:00:00Z"))

	value, ok, err := store.Get("other.subsystem.token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "keep-me", value)
}

func TestStateSurvivesReopen(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	require.NoError(t, store.Set("k", "v"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	value, ok, err := reopened.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", value)
}
