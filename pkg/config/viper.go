package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/cardstream/pkg/dotdir"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "CARDSTREAM"

// InitViper returns a viper instance layered, from lowest to highest
// precedence, as: built-in defaults, config.toml in the resolved config dir,
// CARDSTREAM_* environment variables (CARDSTREAM_STREAM_STALL_TIMEOUT for
// stream.stall_timeout), and finally any flags bound with BindRegisteredFlags.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	registerDefaults(v)

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// registerDefaults seeds every settable key from NewDefaultConfig so that
// viper and "config list" agree on what the defaults are.
func registerDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("version", d.Version)
	for _, key := range orderedKeys {
		if value, ok := LookupValue(d, key); ok {
			v.SetDefault(key, value)
		}
	}
}
