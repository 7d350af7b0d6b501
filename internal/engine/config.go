package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	EmbedAPIBase string // empty = embedding provider disabled
	EmbedAPIKey  string
	EmbedModel   string
	EmbedRPS     float64 // provider rate limit, requests per second
	EmbedTimeout time.Duration

	RedisURL           string // empty = run-cache L2 disabled
	RunCacheTTL        time.Duration
	RunCacheMaxEntries int

	HTTPClient *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages.
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 15 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.EmbedTimeout}
	}
	if c.RunCacheTTL <= 0 {
		c.RunCacheTTL = 15 * time.Minute
	}
	if c.RunCacheMaxEntries <= 0 {
		c.RunCacheMaxEntries = 1000
	}
	cfg = c
	Cfg = &cfg
}
