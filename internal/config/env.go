package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv
const (
	EnvAddr         = "IPSCOPE_ADDR"
	EnvMode         = "IPSCOPE_MODE"
	EnvPosture      = "IPSCOPE_POSTURE"
	EnvDBDriver     = "IPSCOPE_DB_DRIVER"
	EnvDBPath       = "IPSCOPE_DB_PATH"
	EnvDBDSN        = "IPSCOPE_DB_DSN"
	EnvScanRanges   = "IPSCOPE_SCAN_RANGES"
	EnvScanInterval = "IPSCOPE_SCAN_INTERVAL"
	EnvRetention    = "IPSCOPE_RETENTION"
	EnvActiveScan   = "IPSCOPE_ACTIVE_SCAN"
	EnvDNSServer    = "IPSCOPE_DNS_SERVER"
	EnvOUIFile      = "IPSCOPE_OUI_FILE"
	EnvInventory    = "IPSCOPE_INVENTORY_FILE"
	EnvLogLevel     = "IPSCOPE_LOG_LEVEL"
	EnvLogFormat    = "IPSCOPE_LOG_FORMAT"
)

// LoadDotEnv loads a .env file into the process environment. Variables that
// are already set are left alone. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = FindEnvFile()
	}
	if path == "" || !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from IPSCOPE_* environment variables
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = Duration(d)
		return nil
	}

	str(EnvAddr, &c.Server.Addr)
	str(EnvDBDriver, &c.Database.Driver)
	str(EnvDBPath, &c.Database.Path)
	str(EnvDBDSN, &c.Database.DSN)
	str(EnvDNSServer, &c.Resolver.DNSServer)
	str(EnvOUIFile, &c.Vendors.OUIFile)
	str(EnvInventory, &c.Inventory.File)
	str(EnvLogLevel, &c.Logging.Level)
	str(EnvLogFormat, &c.Logging.Format)

	if v, ok := lookup(EnvMode); ok && v != "" {
		m := ParseMode(v)
		c.Mode = &m
	}
	if v, ok := lookup(EnvPosture); ok && v != "" {
		c.Posture = ParsePosture(v)
	}
	if v, ok := lookup(EnvScanRanges); ok && v != "" {
		c.Scan.Ranges = splitList(v)
	}
	if v, ok := lookup(EnvActiveScan); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvActiveScan, err)
		}
		c.ActiveScan.Enabled = enabled
	}
	if err := dur(EnvScanInterval, &c.Scan.Interval); err != nil {
		return err
	}
	if err := dur(EnvRetention, &c.Scan.Retention); err != nil {
		return err
	}

	c.applyDefaults()
	return c.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
