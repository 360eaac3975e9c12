package config

import (
	"time"

	"ipscope/internal/logger"
)

// Config is the root configuration structure
type Config struct {
	Version     int               `yaml:"version"`
	Mode        *Mode             `yaml:"mode,omitempty"` // nil = detected at startup
	Posture     Posture           `yaml:"posture"`
	Behavior    *BehaviorOverride `yaml:"behavior,omitempty"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Scan        ScanConfig        `yaml:"scan"`
	ActiveScan  ActiveScanConfig  `yaml:"active_scan"`
	Resolver    ResolverConfig    `yaml:"resolver"`
	Vendors     VendorConfig      `yaml:"vendors"`
	Assignments AssignmentConfig  `yaml:"assignments"`
	Inventory   InventoryConfig   `yaml:"inventory"`
	Logging     logger.Config     `yaml:"logging"`
}

// BehaviorOverride allows overriding posture defaults
type BehaviorOverride struct {
	ProbeTimeout       *Duration `yaml:"probe_timeout,omitempty"`
	ProbeConcurrency   *int      `yaml:"probe_concurrency,omitempty"`
	ResolveConcurrency *int      `yaml:"resolve_concurrency,omitempty"`
	ResolveTimeout     *Duration `yaml:"resolve_timeout,omitempty"`
	ActiveHostTimeout  *Duration `yaml:"active_host_timeout,omitempty"`
	ActiveMaxRetries   *int      `yaml:"active_max_retries,omitempty"`
	RangePause         *Duration `yaml:"range_pause,omitempty"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Driver string `yaml:"driver"`        // sqlite, postgres
	Path   string `yaml:"path"`          // sqlite file
	DSN    string `yaml:"dsn,omitempty"` // postgres connection string
}

// ScanConfig holds orchestration settings
type ScanConfig struct {
	Ranges           []string `yaml:"ranges,omitempty"` // seeded into the range store at startup
	Interval         Duration `yaml:"interval"`         // 0 disables scheduled scans
	Retention        Duration `yaml:"retention"`
	SeedLocalSubnets bool     `yaml:"seed_local_subnets"` // also seed the detected local subnets
}

// ActiveScanConfig holds nmap settings
type ActiveScanConfig struct {
	Enabled    bool    `yaml:"enabled"`
	BinaryPath *string `yaml:"binary_path,omitempty"`
	Privileged bool    `yaml:"privileged"`
}

// ResolverConfig holds reverse DNS settings
type ResolverConfig struct {
	DNSServer string `yaml:"dns_server,omitempty"` // empty = system resolver
}

// VendorConfig holds OUI table settings
type VendorConfig struct {
	OUIFile   string `yaml:"oui_file,omitempty"` // IEEE oui.txt or Wireshark manuf
	CacheSize int    `yaml:"cache_size"`
}

// AssignmentConfig holds ownership lookup cache settings
type AssignmentConfig struct {
	CacheSize int      `yaml:"cache_size"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// InventoryConfig points at a YAML file of ranges and owner assignments
type InventoryConfig struct {
	File  string `yaml:"file,omitempty"`
	Watch bool   `yaml:"watch"` // reload inventory and OUI files when they change
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
