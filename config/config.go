// Package config loads the YAML configuration file for the zipper's serve
// CLI entry point (the sfn run entry point takes flags only). It keeps salmon_config.go's DurationString/SizeString
// custom-unmarshal idiom and its SetDefaults()/LoadConfig() shape, retargeted
// at yomo's sections (quic/http listeners, TLS, auth, logging, optional
// bandwidth limiting) instead of salmoncannon's bridge list.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yomorun/yomo/tlsconfig"
)

// DurationString supports "10s", "5m" (only lowercase s/m), or a bare integer
// number of seconds.
type DurationString time.Duration

func (d *DurationString) UnmarshalYAML(value *yaml.Node) error {
	s := value.Value
	if value.Tag == "!!int" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*d = DurationString(time.Duration(v) * time.Second)
		return nil
	}
	if !(strings.HasSuffix(s, "s") || strings.HasSuffix(s, "m")) {
		return fmt.Errorf("invalid duration: %s (must end with 's' or 'm')", s)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = DurationString(dur)
	return nil
}

// Duration returns d as a time.Duration.
func (d DurationString) Duration() time.Duration {
	return time.Duration(d)
}

// SizeString supports "10K", "10M", "1G" (uppercase only) or a bare integer
// number of bytes.
type SizeString int64

func (s *SizeString) UnmarshalYAML(value *yaml.Node) error {
	raw := value.Value
	if value.Tag == "!!int" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		*s = SizeString(v)
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty size string")
	}
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(raw, "K"):
		multiplier = 1 << 10
		raw = strings.TrimSuffix(raw, "K")
	case strings.HasSuffix(raw, "M"):
		multiplier = 1 << 20
		raw = strings.TrimSuffix(raw, "M")
	case strings.HasSuffix(raw, "G"):
		multiplier = 1 << 30
		raw = strings.TrimSuffix(raw, "G")
	default:
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return fmt.Errorf("invalid size string: %s (must end with 'K','M','G')", value.Value)
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*s = SizeString(v * multiplier)
	return nil
}

// Bytes returns s as a plain int64 byte count.
func (s SizeString) Bytes() int64 {
	return int64(s)
}

// LogConfig controls where log output goes; an empty Filename means stdout.
type LogConfig struct {
	Filename   string `yaml:"filename,omitempty"`
	MaxSize    int    `yaml:"max_size,omitempty"` // megabytes
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAge     int    `yaml:"max_age,omitempty"` // days
	Compress   bool   `yaml:"compress,omitempty"`
}

// ZipperConfig is the top-level shape of a zipper's YAML config file.
type ZipperConfig struct {
	Host              string            `yaml:"host"`
	QuicPort          int               `yaml:"quic_port"`
	HTTPPort          int               `yaml:"http_port"`
	AdminPort         int               `yaml:"admin_port,omitempty"`
	AuthToken         string            `yaml:"auth_token,omitempty"`
	TLS               tlsconfig.Config  `yaml:"tls,omitempty"`
	IdleTimeout       DurationString    `yaml:"idle_timeout,omitempty"`
	KeepAliveInterval DurationString    `yaml:"keep_alive_interval,omitempty"`
	BandwidthLimit    SizeString        `yaml:"bandwidth_limit,omitempty"` // bytes/sec; parsed, but the zipper does not apply it
	Log               *LogConfig        `yaml:"log,omitempty"`
	Extra             map[string]string `yaml:"extra,omitempty"`
}

// SetDefaults fills in the zero-valued optional fields the same way
// SetDefaults() did for salmoncannon's bridge list.
func (c *ZipperConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.QuicPort == 0 {
		c.QuicPort = 9000
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 9001
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DurationString(30 * time.Second)
	}
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = DurationString(10 * time.Second)
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	} else if c.Log.Filename != "" {
		if c.Log.MaxSize == 0 {
			c.Log.MaxSize = 20
		}
		if c.Log.MaxBackups == 0 {
			c.Log.MaxBackups = 5
		}
		if c.Log.MaxAge == 0 {
			c.Log.MaxAge = 28
		}
	}
}

// LoadZipperConfig reads and parses a zipper YAML config file, applying
// defaults for anything left unset.
func LoadZipperConfig(path string) (*ZipperConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ZipperConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return &cfg, nil
}
