package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeLevel(t *testing.T) {
	tests := []struct {
		mode  Mode
		level int
	}{
		{ModePassive, 0},
		{ModeMonitor, 1},
		{ModeDiscovery, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, tt.mode.Level(), "Mode(%s).Level()", tt.mode)
	}
}

func TestModeAllows(t *testing.T) {
	tests := []struct {
		current  Mode
		required Mode
		allowed  bool
	}{
		{ModeDiscovery, ModePassive, true},
		{ModeDiscovery, ModeDiscovery, true},
		{ModeMonitor, ModeMonitor, true},
		{ModeMonitor, ModeDiscovery, false},
		{ModePassive, ModeMonitor, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.current.Allows(tt.required), "Mode(%s).Allows(%s)", tt.current, tt.required)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"passive", ModePassive},
		{"monitor", ModeMonitor},
		{"discovery", ModeDiscovery},
		{"invalid", ModeDiscovery},
		{"", ModeDiscovery},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMode(tt.input), "ParseMode(%q)", tt.input)
	}
}

func TestPostureGetProfile(t *testing.T) {
	postures := []Posture{PostureStealth, PostureCautious, PostureBalanced, PostureAggressive}

	for _, p := range postures {
		profile := p.GetProfile()
		assert.NotZero(t, profile.ProbeTimeout, "Posture(%s) ProbeTimeout", p)
		assert.NotZero(t, profile.ProbeConcurrency, "Posture(%s) ProbeConcurrency", p)
		assert.NotZero(t, profile.ResolveConcurrency, "Posture(%s) ResolveConcurrency", p)
	}

	assert.Equal(t, PostureProfiles[PostureBalanced], Posture("bogus").GetProfile())
}

func TestBalancedProfileMatchesScanDefaults(t *testing.T) {
	b := PostureBalanced.GetProfile()
	assert.Equal(t, 80, b.ProbeConcurrency)
	assert.Equal(t, 20, b.ResolveConcurrency)
	assert.Equal(t, 5*time.Second, b.ResolveTimeout)
	assert.Equal(t, 200*time.Millisecond, b.ActiveHostTimeout)
	assert.Equal(t, 500*time.Millisecond, b.RangePause)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, PostureBalanced, cfg.Posture)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 14*24*time.Hour, cfg.Scan.Retention.Duration())
	assert.Equal(t, ModeDiscovery, cfg.EffectiveMode())
	assert.True(t, cfg.ActiveScanEnabled())
}

func TestActiveScanEnabled(t *testing.T) {
	cfg := DefaultConfig()
	monitor := ModeMonitor
	cfg.Mode = &monitor
	assert.False(t, cfg.ActiveScanEnabled(), "monitor mode should not allow the active scan")

	cfg = DefaultConfig()
	cfg.ActiveScan.Enabled = false
	assert.False(t, cfg.ActiveScanEnabled(), "disabled active scan should stay disabled in discovery mode")
}

func TestEffectiveBehavior(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Posture = PostureCautious

	assert.Equal(t, PostureProfiles[PostureCautious], cfg.EffectiveBehavior())

	concurrency := 7
	pause := Duration(3 * time.Second)
	cfg.Behavior = &BehaviorOverride{
		ProbeConcurrency: &concurrency,
		RangePause:       &pause,
	}

	got := cfg.EffectiveBehavior()
	assert.Equal(t, 7, got.ProbeConcurrency)
	assert.Equal(t, 3*time.Second, got.RangePause)
	assert.Equal(t, PostureProfiles[PostureCautious].ResolveConcurrency, got.ResolveConcurrency)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.Database.Driver = DriverPostgres
			c.Database.DSN = "postgres://ipscope@localhost/ipscope"
		}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"negative interval", func(c *Config) { c.Scan.Interval = Duration(-time.Second) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Posture = PostureAggressive
	mode := ModeMonitor
	cfg.Mode = &mode
	cfg.Scan.Ranges = []string{"192.168.1.0/24"}
	cfg.Scan.Interval = Duration(15 * time.Minute)

	require.NoError(t, cfg.Save(configPath))

	loaded, path, err := LoadFromPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, path)
	assert.Equal(t, PostureAggressive, loaded.Posture)
	require.NotNil(t, loaded.Mode)
	assert.Equal(t, ModeMonitor, *loaded.Mode)
	assert.Equal(t, []string{"192.168.1.0/24"}, loaded.Scan.Ranges)
	assert.Equal(t, 15*time.Minute, loaded.Scan.Interval.Duration())
}

func TestLoadFromPath_PartialFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	data := "posture: stealth\nscan:\n  retention: 72h\n"
	require.NoError(t, os.WriteFile(configPath, []byte(data), 0644))

	cfg, _, err := LoadFromPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, PostureStealth, cfg.Posture)
	assert.Equal(t, 72*time.Hour, cfg.Scan.Retention.Duration())
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFromPath_BadDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("scan:\n  interval: soon\n"), 0644))

	_, _, err := LoadFromPath(configPath)
	assert.Error(t, err)
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	require.NoError(t, DefaultConfig().Save(configPath))

	t.Chdir(tmpDir)
	assert.NotEmpty(t, FindConfigPath(), "config in the working directory")

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	assert.NotEmpty(t, FindConfigPath(), "fallback when the env path is missing")
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)
	assert.Equal(t, 5*time.Minute, d.Duration())

	marshaled, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "5m0s", marshaled)
}
