package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ClientIDHeader == "" {
		cfg.Server.ClientIDHeader = "X-Client-ID"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/nikah/data/rsvp.db"
	}
	if cfg.Source.RefreshInterval == 0 {
		cfg.Source.RefreshInterval = 5 * time.Minute
	}
	if cfg.Source.FetchTimeout == 0 {
		cfg.Source.FetchTimeout = 10 * time.Second
	}
	if cfg.Source.FamilyMatching == "" {
		cfg.Source.FamilyMatching = "normalized"
	}
	if cfg.RateLimit.MaxSearches == 0 {
		cfg.RateLimit.MaxSearches = 5
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = 24 * time.Hour
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "sqlite"
	}
	if cfg.RateLimit.KeyPrefix == "" {
		cfg.RateLimit.KeyPrefix = "nikah:quota:"
	}
	// Enabled defaults to true when unset (nil).
	if cfg.RateLimit.Enabled == nil {
		t := true
		cfg.RateLimit.Enabled = &t
	}
}
