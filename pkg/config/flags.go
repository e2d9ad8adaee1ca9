package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands.
type Flag struct {
	// Name is the long flag name (e.g. "target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "t"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddDurationFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagTarget       = "target"
	FlagPath         = "path"
	FlagStallTimeout = "stall-timeout"
	FlagRecord       = "record"
	FlagListen       = "listen"
	FlagInterval     = "interval"
	FlagScript       = "script"
)

// Flags is the registry shared by every cardstream command.
var Flags = FlagSet{
	FlagTarget: {
		Name:        "target",
		Shorthand:   "t",
		ViperKey:    "client.target",
		Description: "Base URL of the improvement backend",
	},
	FlagPath: {
		Name:        "path",
		ViperKey:    "client.path",
		Description: "Streaming endpoint path on the backend",
	},
	FlagStallTimeout: {
		Name:        "stall-timeout",
		ViperKey:    "stream.stall_timeout",
		Description: "Silence after which the stream is reported as stalled",
	},
	FlagRecord: {
		Name:        "record",
		Shorthand:   "r",
		ViperKey:    "stream.record_path",
		Description: `Write the raw event stream to this file ("auto" stores it under .cardstream/recordings)`,
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "fixture.listen",
		Description: "Address for the fixture server to listen on",
	},
	FlagInterval: {
		Name:        "interval",
		Shorthand:   "i",
		ViperKey:    "fixture.interval",
		Description: "Delay between scripted events",
	},
	FlagScript: {
		Name:        "script",
		Shorthand:   "s",
		ViperKey:    "fixture.script",
		Description: "Script file (.yaml, .yml, .json) or .sse recording to replay (default: built-in demo)",
	},
}

// AddStringFlag registers the string flag described by fs[key] on cmd, with
// its default taken from NewDefaultConfig.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}
	cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultValue(def.ViperKey), def.Description)
}

// AddDurationFlag is AddStringFlag for duration-valued keys.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, key string, target *time.Duration) {
	def, ok := fs[key]
	if !ok {
		return
	}
	d, _ := time.ParseDuration(defaultValue(def.ViperKey))
	cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, d, def.Description)
}

// BindRegisteredFlags connects the named flags, if cmd registered them, to
// their viper keys so that an explicitly set flag wins over env and file.
// Call it from PreRunE after InitViper.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		if f := cmd.Flags().Lookup(def.Name); f != nil {
			_ = v.BindPFlag(def.ViperKey, f)
		}
	}
}

func defaultValue(viperKey string) string {
	value, _ := LookupValue(NewDefaultConfig(), viperKey)
	return value
}
