package config

// SentryConfig defines settings for Sentry error monitoring. Monitoring is
// disabled when DSN is empty.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
}

// SetDefaults reports the node version as the release.
func (c *SentryConfig) SetDefaults(version string) {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.Release == "" && version != "" {
		c.Release = "microclaw@" + version
	}
}
