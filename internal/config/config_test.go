package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clearImportEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "ROOT_LIST_URL", "ENVIRONMENT", "SERVER_PORT",
		"IGNORED_ROOT_URLS", "IGNORED_SERVICE_BODY_IDS", "TRACING_SAMPLE_RATE", "ROOT_OVERRIDES_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearImportEnv(t)
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresRootListURLOutsideTestEnvironment(t *testing.T) {
	clearImportEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tomato")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAllowsMissingRootListURLInTestEnvironment(t *testing.T) {
	clearImportEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tomato")
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "test", cfg.Environment)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadParsesOverrides(t *testing.T) {
	clearImportEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tomato")
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("IGNORED_ROOT_URLS", "https://a.example, https://b.example")
	t.Setenv("IGNORED_SERVICE_BODY_IDS", "https://a.example:1|2|3,https://b.example:4")
	t.Setenv("TRACING_SAMPLE_RATE", "0.5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Import.IgnoredRootURLs)
	require.Equal(t, []int{1, 2, 3}, cfg.Import.IgnoredBodyIDs["https://a.example"])
	require.Equal(t, []int{4}, cfg.Import.IgnoredBodyIDs["https://b.example"])
	require.InDelta(t, 0.5, cfg.Tracing.SampleRate, 0.0001)
}

func TestRedisEnabledOnlyWhenAddrSet(t *testing.T) {
	clearImportEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tomato")
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Redis.Enabled)

	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err = Load()
	require.NoError(t, err)
	require.True(t, cfg.Redis.Enabled)
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitCSV(" a , b ,, "))
	require.Nil(t, splitCSV(""))
}

func TestParseIgnoredBodyIDsSkipsMalformedGroups(t *testing.T) {
	out := parseIgnoredBodyIDs("https://a.example:1|x|3,malformed,https://b.example:")
	require.Equal(t, []int{1, 3}, out["https://a.example"])
	require.NotContains(t, out, "https://b.example")
}

func TestGetEnvIntFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("TOMATO_TEST_INT", "not-a-number")
	require.Equal(t, 42, getEnvInt("TOMATO_TEST_INT", 42))
}

func TestGetEnvBoolParsesStandardForms(t *testing.T) {
	t.Setenv("TOMATO_TEST_BOOL", "true")
	require.True(t, getEnvBool("TOMATO_TEST_BOOL", false))

	t.Setenv("TOMATO_TEST_BOOL", "")
	require.False(t, getEnvBool("TOMATO_TEST_BOOL", false))
}
