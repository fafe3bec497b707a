package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[polling]
enabled = true
interval_minutes = 15

[google]
client_id = "id.apps.googleusercontent.com"
lookback = "10s"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.True(t, store.GetBool("polling.enabled"))
	assert.Equal(t, 15, store.GetInt("polling.interval_minutes"))
	assert.Equal(t, "id.apps.googleusercontent.com", store.GetString("google.client_id"))
	assert.Equal(t, "10s", store.GetString("google.lookback"))
	assert.Equal(t, []string{
		"google.client_id",
		"google.lookback",
		"polling.enabled",
		"polling.interval_minutes",
	}, store.Keys())
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("polling.interval_minutes", 20))
	require.NoError(t, store.Set("polling.enabled", false))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[polling]")
	assert.Contains(t, string(data), "interval_minutes = 20")
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("google.client_id", "id"))
	require.NoError(t, store1.Set("google.page_size", 500))
	require.NoError(t, store1.Set("polling.enabled", true))
	require.NoError(t, store1.Set("standalone", "value"))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "id", store2.GetString("google.client_id"))
	assert.Equal(t, 500, store2.GetInt("google.page_size"))
	assert.True(t, store2.GetBool("polling.enabled"))
	assert.Equal(t, "value", store2.GetString("standalone"))
}

func TestConfigStore_CollidingKeysSurviveReload(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("sync", "leaf"))
	require.NoError(t, store1.Set("sync.state_ttl", "72h"))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "leaf", store2.GetString("sync"))
	assert.Equal(t, "72h", store2.GetString("sync.state_ttl"))
}

func TestConfigStore_TypedGetters_WrongType(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("int_key", 42))
	require.NoError(t, store.Set("text_key", "not a number"))

	assert.Empty(t, store.GetString("int_key"))
	assert.Equal(t, 0, store.GetInt("text_key"))
	assert.False(t, store.GetBool("text_key"))
	assert.Equal(t, 0, store.GetInt("nonexistent"))
}

func TestConfigStore_EnvOverride(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("polling.interval_minutes", 10))
	require.NoError(t, store.Set("polling.enabled", false))

	t.Setenv("CALSYNC_POLLING_INTERVAL_MINUTES", "30")
	t.Setenv("CALSYNC_POLLING_ENABLED", "true")

	assert.Equal(t, 30, store.GetInt("polling.interval_minutes"))
	assert.True(t, store.GetBool("polling.enabled"))

	val, ok := store.Get("polling.interval_minutes")
	assert.True(t, ok)
	assert.Equal(t, "30", val)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "CALSYNC_GOOGLE_CLIENT_SECRET", EnvName("google.client_secret"))
	assert.Equal(t, "CALSYNC_SYNC_STATE_TTL", EnvName("sync.state_ttl"))
}

func TestConfigStore_Unset(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("google.client_id", "id"))
	require.NoError(t, store.Unset("google.client_id"))
	require.NoError(t, store.Unset("google.client_id"))

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok := reloaded.Get("google.client_id")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte{}, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	_, ok := store.Get("any_key")
	assert.False(t, ok)
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_Load_InvalidTOML(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("valid", "data"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("invalid toml syntax ][}{"), 0600))

	assert.Error(t, store.Load())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := "key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetString(key)
			_ = store.Keys()
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Len(t, store.Keys(), 10)
}
