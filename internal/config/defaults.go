package config

const (
	defaultConfigPath      = "~/.config/picdup/config.toml"
	defaultHash            = "phash"
	defaultHammingDistance = 0
	defaultCacheDir        = "~/.cache/picdup"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Scan: Scan{
			Hash:            defaultHash,
			HammingDistance: defaultHammingDistance,
		},
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
