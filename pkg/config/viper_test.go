package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("server:\n  port: 8080\nroom: lobby\n"), 0o600)
	require.NoError(t, err)

	t.Setenv("SERVER_PORT", "9090")

	v, err := Load(dir, "app")
	require.NoError(t, err)

	assert.Equal(t, 9090, v.GetInt("server.port"))
	assert.Equal(t, "lobby", v.GetString("room"))
}

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("ROOM", "quad")

	v, err := Load(t.TempDir(), "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, "quad", v.GetString("room"))
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CAMPUS_TEST_ROOM=library\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CAMPUS_TEST_ROOM") })

	err := LoadEnvFiles(filepath.Join(dir, "missing.env"), envFile)
	require.NoError(t, err)
	assert.Equal(t, "library", os.Getenv("CAMPUS_TEST_ROOM"))
	assert.Equal(t, "fallback", GetEnv("CAMPUS_TEST_UNSET", "fallback"))
}

func TestMustGetEnv_PanicsWhenUnset(t *testing.T) {
	assert.Panics(t, func() { MustGetEnv("CAMPUS_TEST_DEFINITELY_UNSET") })
}
