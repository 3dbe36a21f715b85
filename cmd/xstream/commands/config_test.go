package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(previous)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "xstream.json5"), []byte(`{
		auth_token: "from-file",
		requests_per_second: 0.5,
		timeout_seconds: 10,
		query_ids: {Followers: "rotated"},
		log_level: "debug",
	}`), 0644)
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	chdir(t, nested)
	t.Setenv(envCSRFToken, "from-env")

	cfg, err := loadConfig("xstream.json5")
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.AuthToken)
	require.Equal(t, "from-env", cfg.CSRFToken)
	require.Equal(t, slog.LevelDebug, cfg.slogLevel())

	opts := cfg.clientOptions()
	require.Equal(t, 10*time.Second, opts.Timeout)
	require.Equal(t, 0.5, opts.RequestsPerSecond)
	require.Equal(t, "rotated", opts.QueryIDs["Followers"])
}

func TestLoadConfigMissing(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := loadConfig("xstream.json5")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, cfg.slogLevel())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, Config{}.Validate())
	require.NoError(t, Config{QueryIds: map[string]string{"SearchTimeline": "id"}}.Validate())

	require.ErrorContains(t, Config{QueryIds: map[string]string{"Nope": "id"}}.Validate(), `unknown operation "Nope"`)
	require.Error(t, Config{QueryIds: map[string]string{"SearchTimeline": ""}}.Validate())
	require.Error(t, Config{RequestsPerSecond: -1}.Validate())
	require.Error(t, Config{LogLevel: "loud"}.Validate())
	require.Error(t, Config{BaseUrl: "not a url"}.Validate())
}
