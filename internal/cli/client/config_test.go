package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempConfig points config.toml at a temp dir for the duration of the test.
func useTempConfig(t *testing.T) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "bookrag", "config.toml")

	old := getConfigPathFunc
	getConfigPathFunc = func() (string, error) {
		return configPath, nil
	}
	t.Cleanup(func() { getConfigPathFunc = old })
	return configPath
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, filepath.Join("bookrag", "config.toml")))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	useTempConfig(t)

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, &GlobalConfig{}, cfg)
}

func TestSaveAndLoadGlobalConfig(t *testing.T) {
	path := useTempConfig(t)

	want := &GlobalConfig{
		APIURL:              "http://books.internal:8080",
		TopK:                7,
		SimilarityThreshold: 0.55,
		SessionID:           "3f2b8c1e-9d4a-4c1b-8e2f-1a2b3c4d5e6f",
	}
	require.NoError(t, SaveGlobalConfig(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "api_url")
	assert.Contains(t, string(data), "http://books.internal:8080")

	got, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadGlobalConfig_InvalidTOML(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("api_url = [unterminated"), 0600))

	_, err := LoadGlobalConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveGlobalConfig_Nil(t *testing.T) {
	useTempConfig(t)
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestSetConfigValue(t *testing.T) {
	cfg := &GlobalConfig{}

	require.NoError(t, setConfigValue(cfg, "api_url", "http://x"))
	require.NoError(t, setConfigValue(cfg, "top_k", "4"))
	require.NoError(t, setConfigValue(cfg, "similarity_threshold", "0.6"))
	require.NoError(t, setConfigValue(cfg, "session_id", "abc"))
	assert.Equal(t, &GlobalConfig{APIURL: "http://x", TopK: 4, SimilarityThreshold: 0.6, SessionID: "abc"}, cfg)

	assert.Error(t, setConfigValue(cfg, "top_k", "-1"))
	assert.Error(t, setConfigValue(cfg, "similarity_threshold", "1.5"))
	assert.Error(t, setConfigValue(cfg, "nope", "1"))
}
