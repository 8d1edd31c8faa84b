package workstation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestLoadConfigCreatesEmptyArrayOnFirstUse(t *testing.T) {
	home := withHome(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg)

	path := filepath.Join(home, ".roro", "config.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Empty(t, raw)
}

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	withHome(t)

	app := AppReference{Name: "myapp", GitURL: "https://example.invalid/myapp.git"}
	require.NoError(t, SaveConfig(Config{app}))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Len(t, cfg, 1)
	assert.Equal(t, "myapp", cfg[0].Name)

	found, ok := cfg.FindByName("myapp")
	require.True(t, ok)
	assert.Equal(t, uint64(defaultSyncIntervalMillis), found.ResolvedSyncInterval())
}

func TestResolvedLocalPathDefaultsUnderRoroRemote(t *testing.T) {
	home := withHome(t)

	app := AppReference{Name: "myapp", GitURL: "https://example.invalid/myapp.git"}
	path, err := app.ResolvedLocalPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".roro", "remote", "myapp"), path)
}

func TestFindByNameMissing(t *testing.T) {
	cfg := Config{{Name: "a"}, {Name: "b"}}
	_, ok := cfg.FindByName("c")
	assert.False(t, ok)
}
