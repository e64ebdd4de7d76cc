// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the mapdeploy settings: built in defaults, an
// optional YAML file, then secrets from the environment (or a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jcodagnone/mapdeploy/geocode"
	"github.com/jcodagnone/mapdeploy/mapdoc"
	"github.com/jcodagnone/mapdeploy/pipeline"
	"github.com/jcodagnone/mapdeploy/publish"
)

// DefaultUserAgent identifies us to Nominatim, which rejects anonymous
// clients.
const DefaultUserAgent = "mapdeploy (+https://github.com/jcodagnone/mapdeploy)"

const (
	DefaultGeocoderTimeout = 30 * time.Second
	DefaultPublishTimeout  = 5 * time.Minute
)

// Config holds all the settings.
type Config struct {
	UserAgent string         `yaml:"user_agent"`
	Backend   string         `yaml:"backend"`
	Geocoder  GeocoderConfig `yaml:"geocoder"`
	Publish   PublishConfig  `yaml:"publish"`
	Map       MapConfig      `yaml:"map"`
	Netlify   NetlifyConfig  `yaml:"netlify"`
	GitHub    GitHubConfig   `yaml:"github"`
	Drive     DriveConfig    `yaml:"drive"`
	Server    ServerConfig   `yaml:"server"`
}

// GeocoderConfig configures address resolution.
type GeocoderConfig struct {
	URL   string        `yaml:"url"`
	Delay time.Duration `yaml:"delay"`
	// Timeout bounds each geocoding request. Zero means no limit.
	Timeout          time.Duration `yaml:"timeout"`
	MinAddressLength int           `yaml:"min_address_length"`
}

// PublishConfig holds the settings shared by every backend.
type PublishConfig struct {
	// Timeout bounds each request to the hosting APIs, uploads included.
	// Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`
}

// MapConfig is the initial view of generated maps.
type MapConfig struct {
	Zoom     int    `yaml:"zoom"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	FileName string `yaml:"file_name"`
}

// NetlifyConfig configures the zip-deploy backend.
type NetlifyConfig struct {
	API   string `yaml:"api"`
	Token string `yaml:"-"`
}

// GitHubConfig configures the content API backend.
type GitHubConfig struct {
	API       string `yaml:"api"`
	Token     string `yaml:"-"`
	Owner     string `yaml:"owner"`
	Repo      string `yaml:"repo"`
	Branch    string `yaml:"branch"`
	PagesHost string `yaml:"pages_host"`
	Dir       string `yaml:"dir"`
}

// DriveConfig configures the OAuth storage backend.
type DriveConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderID        string `yaml:"folder_id"`
	Role            string `yaml:"role"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// WorkDir holds the transient map documents, os.TempDir when empty.
	WorkDir string `yaml:"work_dir"`
}

// Default returns the built in settings.
func Default() *Config {
	return &Config{
		UserAgent: DefaultUserAgent,
		Backend:   string(publish.Netlify),
		Geocoder: GeocoderConfig{
			URL:              geocode.DefaultNominatimURL,
			Delay:            time.Duration(geocode.NominatimDelay),
			Timeout:          DefaultGeocoderTimeout,
			MinAddressLength: pipeline.DefaultMinAddressLength,
		},
		Publish: PublishConfig{
			Timeout: DefaultPublishTimeout,
		},
		Map: MapConfig{
			Zoom:     mapdoc.DefaultZoom,
			Width:    mapdoc.DefaultWidth,
			Height:   mapdoc.DefaultHeight,
			FileName: pipeline.DefaultFileName,
		},
		Netlify: NetlifyConfig{
			API: publish.DefaultNetlifyAPI,
		},
		GitHub: GitHubConfig{
			API:       publish.DefaultGitHubAPI,
			PagesHost: publish.DefaultPagesHost,
			Dir:       publish.DefaultRepoDir,
		},
		Drive: DriveConfig{
			CredentialsFile: publish.DefaultClientSecretsFile,
			TokenFile:       publish.DefaultTokenFile,
			Role:            publish.DefaultDriveRole,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv is Load followed by the environment overrides. A .env file
// in the working directory, if any, is loaded first; real environment
// variables win over it.
func LoadFromEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.Getenv)

	return cfg, cfg.Validate()
}

// ApplyEnv overrides secrets and identity out of getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("NETLIFY_AUTH_TOKEN"); v != "" {
		c.Netlify.Token = v
	}

	if v := getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}

	if v := getenv("GITHUB_OWNER"); v != "" {
		c.GitHub.Owner = v
	}

	if v := getenv("GITHUB_REPO"); v != "" {
		c.GitHub.Repo = v
	}

	if v := getenv("MAPDEPLOY_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error

	if c.UserAgent == "" {
		errs = append(errs, errors.New("user_agent is required by the geocoding service"))
	}

	if _, err := publish.ParseBackend(c.Backend); err != nil {
		errs = append(errs, err)
	}

	if c.Geocoder.Delay < 0 {
		errs = append(errs, fmt.Errorf("geocoder.delay must not be negative: %s", c.Geocoder.Delay))
	}

	if c.Geocoder.Timeout < 0 {
		errs = append(errs, fmt.Errorf("geocoder.timeout must not be negative: %s", c.Geocoder.Timeout))
	}

	if c.Publish.Timeout < 0 {
		errs = append(errs, fmt.Errorf("publish.timeout must not be negative: %s", c.Publish.Timeout))
	}

	if c.Geocoder.MinAddressLength < 0 {
		errs = append(errs, fmt.Errorf("geocoder.min_address_length must not be negative: %d", c.Geocoder.MinAddressLength))
	}

	return errors.Join(errs...)
}
