package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent cardstream configuration stored as config.toml
// in the .cardstream/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	Stream  StreamConfig  `toml:"stream"`
	Fixture FixtureConfig `toml:"fixture"`
	Log     LogConfig     `toml:"log"`
}

// ClientConfig holds settings for commands that open an improvement stream
// against a backend. Target is a full URL (scheme + host + port) and Path is
// the streaming endpoint on that host.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
	Path   string `toml:"path,omitempty"`
}

// StreamConfig holds settings applied to every improvement stream.
// Durations are stored as Go duration strings ("2s", "1500ms").
type StreamConfig struct {
	StallTimeout string `toml:"stall_timeout,omitempty"`
	RecordPath   string `toml:"record_path,omitempty"`
}

// StallTimeoutDuration parses StallTimeout. An empty or invalid value yields zero,
// which the watchdog treats as "use the default".
func (s StreamConfig) StallTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.StallTimeout)
	if err != nil {
		return 0
	}
	return d
}

// FixtureConfig holds settings for the scripted fixture server.
type FixtureConfig struct {
	Listen   string `toml:"listen,omitempty"`
	Interval string `toml:"interval,omitempty"`
	Script   string `toml:"script,omitempty"`
}

// IntervalDuration parses Interval, returning zero when unset or invalid.
func (f FixtureConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(f.Interval)
	if err != nil {
		return 0
	}
	return d
}

// LogConfig selects the log handler used by the CLI.
type LogConfig struct {
	Pretty bool `toml:"pretty"`
	JSON   bool `toml:"json"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"client.path": {
		get: func(c *Config) string { return c.Client.Path },
		set: func(c *Config, v string) error { c.Client.Path = v; return nil },
	},
	"stream.stall_timeout": {
		get: func(c *Config) string { return c.Stream.StallTimeout },
		set: func(c *Config, v string) error {
			if err := validDuration("stream.stall_timeout", v); err != nil {
				return err
			}
			c.Stream.StallTimeout = v
			return nil
		},
	},
	"stream.record_path": {
		get: func(c *Config) string { return c.Stream.RecordPath },
		set: func(c *Config, v string) error { c.Stream.RecordPath = v; return nil },
	},
	"fixture.listen": {
		get: func(c *Config) string { return c.Fixture.Listen },
		set: func(c *Config, v string) error { c.Fixture.Listen = v; return nil },
	},
	"fixture.interval": {
		get: func(c *Config) string { return c.Fixture.Interval },
		set: func(c *Config, v string) error {
			if err := validDuration("fixture.interval", v); err != nil {
				return err
			}
			c.Fixture.Interval = v
			return nil
		},
	},
	"fixture.script": {
		get: func(c *Config) string { return c.Fixture.Script },
		set: func(c *Config, v string) error { c.Fixture.Script = v; return nil },
	},
	"log.pretty": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Pretty) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.pretty: %w", err)
			}
			c.Log.Pretty = b
			return nil
		},
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.json: %w", err)
			}
			c.Log.JSON = b
			return nil
		},
	},
}

func validDuration(key, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid value for %s: must be positive", key)
	}
	return nil
}
