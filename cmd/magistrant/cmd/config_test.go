package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"magistrant/internal/curriculum"
	"magistrant/internal/store"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(envTelegramToken, "")
	t.Setenv(envStoreDsn, "")

	config, err := loadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, defaultConfig().Portal, config.Portal)
	require.Equal(t, curriculum.DefaultLayout(), config.Layout)
	require.Equal(t, store.Config{Driver: store.DriverFile, Path: "data.json"}, config.Store)
	require.False(t, config.Cache.CacheEmptyResults)
	require.Equal(t, int64(4), config.Telegram.MaxConcurrentPlans)
	require.Error(t, config.Telegram.Validate())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		portal: {timeout_seconds: 45},
		store: {driver: "postgres", dsn: "postgres://localhost/wrong"},
		cache: {cache_empty_results: true},
		telegram: {max_concurrent_plans: 2},
	}`), 0644))

	t.Setenv(envTelegramToken, "123:abc")
	t.Setenv(envStoreDsn, "postgres://localhost/plans")

	config, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 45, config.Portal.TimeoutSeconds)
	require.Equal(t, "https://kpfu.ru", config.Portal.EntryUrl)
	require.Equal(t, "postgres://localhost/plans", config.Store.DSN)
	require.True(t, config.Cache.CacheEmptyResults)
	require.Equal(t, int64(2), config.Telegram.MaxConcurrentPlans)
	require.Equal(t, "123:abc", config.Telegram.Token)
	require.NoError(t, config.Telegram.Validate())
}

func TestLoadConfigRejectsBadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		layout: {first_half: {offset: 9, width: 5}, second_half: {offset: 10, width: 5}, hour_cells: 3},
	}`), 0644))

	_, err := loadConfig(path)
	require.Error(t, err)
}
