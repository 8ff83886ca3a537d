package config

// LogConfig selects the slog handler.
type LogConfig struct {
	Level     string // debug, info, warn, error
	Format    string // text or json
	AddSource bool
}

func LoadLogConfig() LogConfig {
	return LogConfig{
		Level:     envStr("LOG_LEVEL", "info"),
		Format:    envStr("LOG_FORMAT", "text"),
		AddSource: envBool("LOG_ADD_SOURCE", false),
	}
}
