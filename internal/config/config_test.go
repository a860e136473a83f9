package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Data:     DataConfig{BasePath: "/some/path"},
		Handover: HandoverConfig{ScanInterval: 3600e9},
		Policy:   DefaultPolicy(),
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data base path cannot be empty")
}

func TestValidate_ZeroScanInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Handover.ScanInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestExpandDataPaths_Defaults(t *testing.T) {
	cfg := &Config{}

	err := cfg.expandDataPaths()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	base := filepath.Join(homeDir, "AmarPathagar", "data")
	assert.Equal(t, base, cfg.Data.BasePath)
	assert.Equal(t, filepath.Join(base, "pathagar.db"), cfg.Data.DatabasePath)
	assert.Equal(t, filepath.Join(base, "inbox"), cfg.Data.InboxPath)
	assert.Equal(t, filepath.Join(base, "search"), cfg.Data.SearchPath)
}

func TestExpandDataPaths_TildeExpansion(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "~/my-data"}}

	err := cfg.expandDataPaths()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "my-data"), cfg.Data.BasePath)
}

func TestExpandDataPaths_ExplicitDatabase(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "/srv/data", DatabasePath: "/var/lib/pathagar.db"}}

	err := cfg.expandDataPaths()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/pathagar.db", cfg.Data.DatabasePath)
	assert.Equal(t, "/srv/data/inbox", cfg.Data.InboxPath)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HANDOVER_PUBLIC_READ", "")
	t.Setenv("HANDOVER_SCAN_INTERVAL", "")
	t.Setenv("POLICY_PATH", "")

	cfg, err := Load([]string{
		"-env-file", filepath.Join(dir, "missing.env"),
		"-data-path", dir,
		"-log-level", "debug",
		"-handover-scan-interval", "15m",
	})
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, dir, cfg.Data.BasePath)
	assert.Equal(t, filepath.Join(dir, "pathagar.db"), cfg.Data.DatabasePath)
	assert.Equal(t, 15*time.Minute, cfg.Handover.ScanInterval)
	assert.False(t, cfg.Handover.PublicRead)
	assert.Equal(t, DefaultPolicy(), cfg.Policy)
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	_, err := Load([]string{
		"-env-file", filepath.Join(t.TempDir(), "missing.env"),
		"-data-path", t.TempDir(),
		"-access-token-duration", "forever",
	})
	assert.Error(t, err)
}

func TestExpandPath_RelativePath(t *testing.T) {
	got, err := expandPath("relative/path", "")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(got))
	assert.Contains(t, got, "relative/path")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	// Test env var when flag is empty.
	t.Setenv("TEST_ENV_KEY", "env-value")

	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	// Test default when both are empty.
	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetBoolConfigValue(t *testing.T) {
	t.Setenv("TEST_BOOL_YES", "YES")
	t.Setenv("TEST_BOOL_NO", "nope")

	assert.True(t, getBoolConfigValue("", "TEST_BOOL_YES", false))
	assert.False(t, getBoolConfigValue("", "TEST_BOOL_NO", true))
	assert.True(t, getBoolConfigValue("", "TEST_BOOL_UNSET", true))
	assert.True(t, getBoolConfigValue("1", "TEST_BOOL_NO", false))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}

func TestLoadPolicy_Defaults(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), *p)
	assert.Equal(t, 7, p.HandoverLeadDays)
}

func TestLoadPolicy_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `ranking:
  wait_day: 5
handover_lead_days: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, p.Ranking.WaitDay, 0.0001)
	assert.InDelta(t, DefaultPolicy().Ranking.Score, p.Ranking.Score, 0.0001)
	assert.Equal(t, 3, p.HandoverLeadDays)
	assert.Equal(t, 2000, p.MaxMessageRunes)
}

func TestLoadPolicy_RejectsNegativeWeight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranking:\n  score: -1\n"), 0o644))

	_, err := LoadPolicy(path)
	assert.Error(t, err)
}

func TestLoadPolicy_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranking:\n  wait_days: 5\n"), 0o644))

	_, err := LoadPolicy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait_days")
}

func TestLoadPolicy_EmptyFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), *p)
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy("/nonexistent/policy.yaml")
	assert.Error(t, err)
}
