package config

const (
	defaultClientTarget = "http://localhost:3001"
	defaultClientPath   = "/api/improve"

	defaultStallTimeout = "2s"

	defaultFixtureListen   = ":3001"
	defaultFixtureInterval = "100ms"

	defaultLogPretty = true
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Target: defaultClientTarget,
			Path:   defaultClientPath,
		},
		Stream: StreamConfig{
			StallTimeout: defaultStallTimeout,
		},
		Fixture: FixtureConfig{
			Listen:   defaultFixtureListen,
			Interval: defaultFixtureInterval,
		},
		Log: LogConfig{
			Pretty: defaultLogPretty,
		},
	}
}
