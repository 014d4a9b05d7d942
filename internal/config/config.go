package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "CITIEVENTS_"

type Config struct {
	APIURL          string        `env:"API_URL"`
	APIToken        string        `env:"API_TOKEN"`
	DBPath          string        `env:"DB_PATH" envDefault:"citievents.db"`
	Port            string        `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Namespace       string        `env:"NAMESPACE" envDefault:"default"`
	Refresh         string        `env:"REFRESH" envDefault:"*/5 * * * *"`
	IPLookupURL     string        `env:"IP_LOOKUP_URL" envDefault:"https://ipapi.co/json/"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	PageSize        int           `env:"PAGE_SIZE" envDefault:"5"`
	SearchThreshold float64       `env:"SEARCH_THRESHOLD" envDefault:"0.4"`

	// LegacyMotivations creates motivations through /upload-poster for
	// backends that predate POST /motivation.
	LegacyMotivations bool `env:"LEGACY_MOTIVATIONS"`
	// LegacyUploads creates events and announcements through /upload-poster.
	LegacyUploads bool `env:"LEGACY_UPLOADS"`
}

// Load reads an optional .env file and then the CITIEVENTS_* environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return parse(env.Options{Prefix: envPrefix})
}

// FromMap parses configuration from an explicit variable set instead of the
// process environment. Keys carry the CITIEVENTS_ prefix.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: envPrefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs. The backend URL is
// only checked by RequireAPI since some commands run offline.
func (c *Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.SearchThreshold < 0 || c.SearchThreshold > 1 {
		return fmt.Errorf("search threshold must be within [0, 1], got %v", c.SearchThreshold)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.Namespace == "" {
		return errors.New("namespace must not be empty")
	}
	if c.APIURL != "" {
		if err := checkURL("api url", c.APIURL); err != nil {
			return err
		}
	}
	return nil
}

// RequireAPI reports an error when no usable backend URL is configured.
func (c *Config) RequireAPI() error {
	if c.APIURL == "" {
		return errors.New(envPrefix + "API_URL is required")
	}
	return checkURL("api url", c.APIURL)
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}
