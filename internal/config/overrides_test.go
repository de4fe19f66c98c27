package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRootOverridesFileMissingPathIsNotAnError(t *testing.T) {
	overrides, err := LoadRootOverridesFile("")
	require.NoError(t, err)
	require.Nil(t, overrides)

	overrides, err = LoadRootOverridesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Nil(t, overrides)
}

func TestLoadRootOverridesFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- url: https://a.example
  ignored: true
- url: https://b.example
  ignored_service_bodies: [1, 2, 3]
`), 0o644))

	overrides, err := LoadRootOverridesFile(path)
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	require.Equal(t, "https://a.example", overrides[0].URL)
	require.True(t, overrides[0].Ignored)
	require.Equal(t, []int{1, 2, 3}, overrides[1].IgnoredServiceBodies)
}

func TestApplyRootOverridesAddsWithoutDuplicating(t *testing.T) {
	cfg := ImportConfig{
		IgnoredRootURLs: []string{"https://a.example"},
		IgnoredBodyIDs:  map[string][]int{"https://a.example": {9}},
	}
	applyRootOverrides(&cfg, []RootOverride{
		{URL: "https://a.example", Ignored: true, IgnoredServiceBodies: []int{1, 2}},
		{URL: "https://c.example", Ignored: true},
	})

	require.Equal(t, []string{"https://a.example", "https://c.example"}, cfg.IgnoredRootURLs)
	// env-parsed entry for a.example wins; override doesn't clobber it.
	require.Equal(t, []int{9}, cfg.IgnoredBodyIDs["https://a.example"])
}
