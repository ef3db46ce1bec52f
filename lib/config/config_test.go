package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "catalog.db", cfg.DBPath)
	assert.Equal(t, 15*time.Second, cfg.CatalogAPITimeout)
	assert.Equal(t, 100, cfg.CatalogAPIPageSize)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CATALOG_API_URL=https://api.example.com\nCATALOG_API_TIMEOUT=3s\n"), 0600))
	t.Setenv("PORT", "9090")
	t.Cleanup(func() {
		os.Unsetenv("CATALOG_API_URL")
		os.Unsetenv("CATALOG_API_TIMEOUT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.CatalogAPIURL)
	assert.Equal(t, 3*time.Second, cfg.CatalogAPITimeout)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.RemoteEnabled())
}

func TestLoadRejectsBadPageSize(t *testing.T) {
	t.Setenv("CATALOG_API_PAGE_SIZE", "0")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
