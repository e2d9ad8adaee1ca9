package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/cardstream/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Configer reads and writes config.toml inside the resolved .cardstream/
// directory.
type Configer struct {
	path string
}

// NewConfiger resolves the cardstream directory (see dotdir.Manager.Target)
// and returns a Configer for the config.toml inside it. The file itself may
// not exist yet.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	return &Configer{path: filepath.Join(dir, configFile)}, nil
}

// orderedKeys lists every key in the order of the TOML section layout.
var orderedKeys = []string{
	"client.target",
	"client.path",
	"stream.stall_timeout",
	"stream.record_path",
	"fixture.listen",
	"fixture.interval",
	"fixture.script",
	"log.pretty",
	"log.json",
}

// ValidConfigKeys returns every supported key in section order.
func ValidConfigKeys() []string {
	return slices.Clone(orderedKeys)
}

// IsValidConfigKey reports whether key is supported.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// GetTarget returns the config.toml path, whether or not the file exists.
func (c *Configer) GetTarget() string {
	return c.path
}

// Exists reports whether config.toml has been written.
func (c *Configer) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// LoadConfig returns the file's settings layered over NewDefaultConfig().
// A missing file yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewDefaultConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Decoding over the defaults keeps booleans that default to true intact
	// when their section is absent from the file.
	cfg := NewDefaultConfig()
	if err := decodeInto(cfg, data); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults refills string keys that the file set to "".
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	for _, key := range orderedKeys {
		info := configKeys[key]
		if info.get(cfg) != "" {
			continue
		}
		if def := info.get(defaults); def != "" {
			_ = info.set(cfg, def)
		}
	}
}

// SaveConfig writes cfg to config.toml, replacing the file atomically.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), configFile+".*")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key from the loaded config.
func (c *Configer) GetConfigValue(key string) (string, error) {
	if !IsValidConfigKey(key) {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	value, _ := LookupValue(cfg, key)
	return value, nil
}

// LookupValue returns the string form of key in cfg and whether key is known.
func LookupValue(cfg *Config, key string) (string, bool) {
	info, ok := configKeys[key]
	if !ok {
		return "", false
	}
	return info.get(cfg), true
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decodeInto(cfg, data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeInto(cfg *Config, data []byte) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	for key, raw := range map[string]string{
		"stream.stall_timeout": cfg.Stream.StallTimeout,
		"fixture.interval":     cfg.Fixture.Interval,
	} {
		if raw == "" {
			continue
		}
		if err := validDuration(key, raw); err != nil {
			return err
		}
	}

	return nil
}
