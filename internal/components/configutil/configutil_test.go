package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Token  string            `json:"token"`
	Limit  int               `json:"limit"`
	Values map[string]string `json:"values"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "xstream.json5"), []byte(`{
		// comments are allowed
		token: "base",
		limit: 20,
		values: {a: "1"},
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "xstream.local.json5"), []byte(`{token: "local"}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "xstream.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Token)
	require.Equal(t, 20, cfg.Limit)
	require.Equal(t, "1", cfg.Values["a"])
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestSplitExt(t *testing.T) {
	name, ext := splitExt("config.local.json5")
	require.Equal(t, "config.local", name)
	require.Equal(t, "json5", ext)

	name, ext = splitExt("noext")
	require.Equal(t, "noext", name)
	require.Equal(t, "", ext)
}
