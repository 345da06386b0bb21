package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:3000/api",
			Timeout:    5 * time.Second,
			UserAgent:  "blogify-test/1.0",
			AuthScheme: "Token",
		},
		Database: DatabaseConfig{
			Path:    ":memory:", // callers that need bbolt open a temp file
			Timeout: 1 * time.Second,
		},
		Log: LogConfig{
			Level: "off",
		},
		UI:   defaultConfig().UI,
		Keys: defaultConfig().Keys,
	}
}
