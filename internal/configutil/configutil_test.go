package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type nested struct {
	Driver string `json:"driver"`
	Path   string `json:"path"`
}

type testConfig struct {
	Name    string `json:"name"`
	Timeout int    `json:"timeout"`
	Store   nested `json:"store"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](base)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(base, []byte(`{
		// comments and trailing commas are allowed
		name: "magistrant",
		timeout: 30,
		store: {driver: "file", path: "data.json",},
	}`), 0644))

	config, err := ReadConfig[testConfig](base)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Name:    "magistrant",
		Timeout: 30,
		Store:   nested{Driver: "file", Path: "data.json"},
	}, config)

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.local.json5"),
		[]byte(`{timeout: 5, store: {driver: "sqlite"}}`),
		0644,
	))
	config, err = ReadConfig[testConfig](base)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Name:    "magistrant",
		Timeout: 5,
		Store:   nested{Driver: "sqlite", Path: "data.json"},
	}, config)
}

func TestReadConfigInvalid(t *testing.T) {
	base := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(base, []byte(`{name: `), 0644))
	_, err := ReadConfig[testConfig](base)
	require.Error(t, err)
}

func TestDotenvAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MAGISTRANT_TEST_TOKEN=from-dotenv\nMAGISTRANT_TEST_SET=from-dotenv\n"), 0644))

	t.Setenv("MAGISTRANT_TEST_SET", "from-env")
	t.Setenv("MAGISTRANT_TEST_TOKEN", "")
	os.Unsetenv("MAGISTRANT_TEST_TOKEN")

	require.NoError(t, LoadDotenv(path, filepath.Join(t.TempDir(), "missing.env")))

	token := "from-config"
	require.True(t, OverrideFromEnv(&token, "MAGISTRANT_TEST_TOKEN"))
	require.Equal(t, "from-dotenv", token)

	set := "from-config"
	require.True(t, OverrideFromEnv(&set, "MAGISTRANT_TEST_SET"))
	require.Equal(t, "from-env", set)

	unset := "from-config"
	require.False(t, OverrideFromEnv(&unset, "MAGISTRANT_TEST_UNSET"))
	require.Equal(t, "from-config", unset)
}
