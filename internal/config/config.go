// Package config provides configuration management for ipscope.
//
// Settings are layered, later layers winning:
//  1. built-in defaults and the posture profile
//  2. the YAML config file
//  3. a .env file and IPSCOPE_* environment variables
//  4. command line flags (applied by cmd/server)
//
// Config file locations (priority order):
//  1. $IPSCOPE_CONFIG
//  2. ./ipscope.yaml
//  3. ~/.config/ipscope/config.yaml
//  4. /etc/ipscope/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ipscope/internal/logger"
)

const (
	defaultAddr            = ":8080"
	defaultDBPath          = "./ipscope.db"
	defaultRetention       = 14 * 24 * time.Hour
	defaultShutdownTimeout = 10 * time.Second
	defaultVendorCache     = 4096
	defaultAssignmentCache = 1024
	defaultAssignmentTTL   = 5 * time.Minute
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Posture: PostureBalanced,
		Server: ServerConfig{
			Addr:            defaultAddr,
			ShutdownTimeout: Duration(defaultShutdownTimeout),
		},
		Database: DatabaseConfig{Driver: DriverSQLite, Path: defaultDBPath},
		Scan: ScanConfig{
			Retention: Duration(defaultRetention),
		},
		ActiveScan:  ActiveScanConfig{Enabled: true, Privileged: true},
		Vendors:     VendorConfig{CacheSize: defaultVendorCache},
		Assignments: AssignmentConfig{CacheSize: defaultAssignmentCache, CacheTTL: Duration(defaultAssignmentTTL)},
		Logging:     logger.DefaultConfig(),
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Posture == "" {
		c.Posture = PostureBalanced
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDBPath
	}
	if c.Scan.Retention <= 0 {
		c.Scan.Retention = Duration(defaultRetention)
	}
	if c.Vendors.CacheSize <= 0 {
		c.Vendors.CacheSize = defaultVendorCache
	}
	if c.Assignments.CacheSize <= 0 {
		c.Assignments.CacheSize = defaultAssignmentCache
	}
	if c.Assignments.CacheTTL <= 0 {
		c.Assignments.CacheTTL = Duration(defaultAssignmentTTL)
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Scan.Interval < 0 {
		return fmt.Errorf("scan.interval must not be negative")
	}
	return nil
}

// EffectiveMode returns the mode to use (explicit or detected setting, else discovery)
func (c *Config) EffectiveMode() Mode {
	if c.Mode != nil {
		return *c.Mode
	}
	return ModeDiscovery
}

// ActiveScanEnabled reports whether the nmap fallback should run
func (c *Config) ActiveScanEnabled() bool {
	return c.ActiveScan.Enabled && c.EffectiveMode().Allows(ModeDiscovery)
}

// EffectiveBehavior returns behavior profile with overrides applied
func (c *Config) EffectiveBehavior() BehaviorProfile {
	base := c.Posture.GetProfile()

	if c.Behavior == nil {
		return base
	}

	if c.Behavior.ProbeTimeout != nil {
		base.ProbeTimeout = c.Behavior.ProbeTimeout.Duration()
	}
	if c.Behavior.ProbeConcurrency != nil {
		base.ProbeConcurrency = *c.Behavior.ProbeConcurrency
	}
	if c.Behavior.ResolveConcurrency != nil {
		base.ResolveConcurrency = *c.Behavior.ResolveConcurrency
	}
	if c.Behavior.ResolveTimeout != nil {
		base.ResolveTimeout = c.Behavior.ResolveTimeout.Duration()
	}
	if c.Behavior.ActiveHostTimeout != nil {
		base.ActiveHostTimeout = c.Behavior.ActiveHostTimeout.Duration()
	}
	if c.Behavior.ActiveMaxRetries != nil {
		base.ActiveMaxRetries = *c.Behavior.ActiveMaxRetries
	}
	if c.Behavior.RangePause != nil {
		base.RangePause = c.Behavior.RangePause.Duration()
	}

	return base
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	b := c.EffectiveBehavior()
	summary := fmt.Sprintf("Mode: %s, Posture: %s, DB: %s\n", c.EffectiveMode(), c.Posture, c.Database.Driver)
	summary += fmt.Sprintf("Probe: %s x%d, Resolve: %s x%d, Pause: %s, Retention: %s",
		b.ProbeTimeout, b.ProbeConcurrency, b.ResolveTimeout, b.ResolveConcurrency,
		b.RangePause, c.Scan.Retention.Duration())
	return summary
}
