package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMerged_IgnoreConfigUsesDefaults(t *testing.T) {
	cfg, used, err := LoadMerged(Options{IgnoreConfig: true})
	require.NoError(t, err)

	assert.Equal(t, "(ignored config)", used)
	assert.Equal(t, 200, cfg.MaxChapters)
	assert.Equal(t, 500, cfg.DescMaxLen)
	assert.Equal(t, 30, cfg.HTTPTimeoutSec)
	assert.Equal(t, 10, cfg.MetadataTimeoutSec)
	assert.Equal(t, "books", cfg.Output)
}

func TestLoadMerged_FlagsOverrideDefaults(t *testing.T) {
	cfg, _, err := LoadMerged(Options{
		IgnoreConfig: true,
		Debug:        true,
		Output:       "/tmp/epubs",
		MaxChapters:  50,
		UserAgent:    "custom-ua",
		DefaultURL:   "https://example.org/n",
		DefaultLimit: 10,
	})
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/epubs", cfg.Output)
	assert.Equal(t, 50, cfg.MaxChapters)
	assert.Equal(t, "custom-ua", cfg.UserAgent)
	assert.Equal(t, "https://example.org/n", cfg.DefaultURL)
	assert.Equal(t, 10, cfg.DefaultLimit)
}

func TestSaveAndLoadYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	want := DefaultConfig()
	want.Output = "elsewhere"
	want.CloudflareBypass = true
	want.DescSelectors = []string{".summary", "#synopsis"}

	require.NoError(t, SaveYAML(want, path))

	got, err := loadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNormalizeDefaults_FillsZeroValues(t *testing.T) {
	c := &Config{}
	normalizeDefaults(c)

	assert.Equal(t, "books", c.Output)
	assert.Equal(t, 200, c.MaxChapters)
	assert.Equal(t, 500, c.DescMaxLen)
}
