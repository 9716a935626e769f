package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("PDFCHAT_MODEL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := FromEnv()
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
	assert.Equal(t, DefaultModel, cfg.Ollama.Model)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Empty(t, cfg.Cache.RedisURL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "dev_pdfchat", cfg.Axiom.Dataset)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "gpu-box:11434")
	t.Setenv("PDFCHAT_MODEL", "tinyllama:latest")
	t.Setenv("OLLAMA_TIMEOUT", "90s")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("LOG_PRETTY", "yes")

	cfg := FromEnv()
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.Host)
	assert.Equal(t, "tinyllama:latest", cfg.Ollama.Model)
	assert.Equal(t, 90*time.Second, cfg.Ollama.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.Logging.Pretty)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("PDFCHAT_TEST_ONLY_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PDFCHAT_TEST_ONLY_KEY") })

	Load(file)
	assert.Equal(t, "from-file", os.Getenv("PDFCHAT_TEST_ONLY_KEY"))
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	assert.NotPanics(t, func() { Load(filepath.Join(t.TempDir(), "missing.env")) })
}
