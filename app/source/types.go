package source

import (
	"net/http"
	"time"

	"github.com/lysyi3m/cap-comb/app/alerting"
)

type Config struct {
	Name     string            // Derived from filename (without .yml extension)
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
	Settings ConfigSettings    `yaml:"settings"`
	Filters  []ConfigFilter    `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxAlerts       int  `yaml:"max_alerts"`
	Timeout         int  `yaml:"timeout"`     // seconds, per request
	Concurrency     int  `yaml:"concurrency"` // parallel alert downloads, 0 uses the service default
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// FetchOptions builds the request options for polling this source.
// An empty userAgent keeps the client default.
func (c *Config) FetchOptions(userAgent string, defaultConcurrency int) alerting.Options {
	headers := http.Header{}
	if userAgent != "" {
		headers.Set("User-Agent", userAgent)
	}
	for name, value := range c.Headers {
		headers.Set(name, value)
	}

	concurrency := c.Settings.Concurrency
	if concurrency == 0 {
		concurrency = defaultConcurrency
	}

	return alerting.Options{
		URL:         c.URL,
		Headers:     headers,
		Timeout:     time.Duration(c.Settings.Timeout) * time.Second,
		Concurrency: concurrency,
	}
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Settings.RefreshInterval) * time.Second
}
