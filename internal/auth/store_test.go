package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wantanidea/wantanidea-cli/internal/models"
)

func newFileStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("WANTANIDEA_NO_KEYRING", "1")
	return NewStore(t.TempDir())
}

func TestStoreRoundTrip(t *testing.T) {
	store := newFileStore(t)
	assert.False(t, store.UsingKeyring())

	user := &models.UserProfile{ID: 7, Email: "ada@example.com", Name: "Ada"}
	require.NoError(t, store.SaveSession(user, "access-1", "refresh-1"))

	loaded := store.LoadUser()
	require.NotNil(t, loaded)
	assert.Equal(t, int64(7), loaded.ID)
	assert.Equal(t, "ada@example.com", loaded.Email)

	access, refresh := store.LoadTokens()
	assert.Equal(t, "access-1", access)
	assert.Equal(t, "refresh-1", refresh)
}

func TestStoreMissingKeysAreAbsent(t *testing.T) {
	store := newFileStore(t)

	assert.Nil(t, store.LoadUser())
	access, refresh := store.LoadTokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestStoreClearRemovesEverything(t *testing.T) {
	store := newFileStore(t)
	require.NoError(t, store.SaveSession(&models.UserProfile{ID: 1, Email: "x@y.z"}, "a", "r"))

	require.NoError(t, store.Clear())

	assert.Nil(t, store.LoadUser())
	access, refresh := store.LoadTokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)

	// Clearing an already-empty store is not an error
	require.NoError(t, store.Clear())
}

func TestStoreCorruptUserClearsSession(t *testing.T) {
	store := newFileStore(t)
	require.NoError(t, store.SaveSession(&models.UserProfile{ID: 1, Email: "x@y.z"}, "a", "r"))

	// Damage only the profile value; the tokens stay intact on disk
	require.NoError(t, store.putAll(map[string]string{KeyUser: "{not json"}))

	assert.Nil(t, store.LoadUser())
	access, refresh := store.LoadTokens()
	assert.Empty(t, access, "a corrupt profile invalidates the whole session")
	assert.Empty(t, refresh)
}

func TestStoreSaveTokensKeepsRefreshWhenNotRotated(t *testing.T) {
	store := newFileStore(t)
	require.NoError(t, store.SaveTokens("a1", "r1"))
	require.NoError(t, store.SaveTokens("a2", ""))

	access, refresh := store.LoadTokens()
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r1", refresh)
}

func TestStoreFilePermissions(t *testing.T) {
	t.Setenv("WANTANIDEA_NO_KEYRING", "1")
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.SaveTokens("a", "r"))

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreCorruptFileStartsOver(t *testing.T) {
	t.Setenv("WANTANIDEA_NO_KEYRING", "1")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), []byte("garbage"), 0600))

	store := NewStore(dir)
	assert.Nil(t, store.LoadUser())
	require.NoError(t, store.SaveTokens("a", "r"))

	access, _ := store.LoadTokens()
	assert.Equal(t, "a", access)
}
