// Package config loads runtime settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDatabaseURL    = "dataroom.db"
	DefaultFrontendOrigin = "http://localhost:5173"
	DefaultStoragePath    = "./data"
	DefaultJWTExpiryHours = 24
	DefaultHost           = "127.0.0.1"
	DefaultPort           = "8080"
)

// Config holds every setting the server needs. Environment variables win over
// values read from the YAML file named by CONFIG_FILE.
type Config struct {
	DatabaseURL string `yaml:"database_url"`

	JWTSecret      string `yaml:"jwt_secret"`
	JWTExpiryHours int    `yaml:"jwt_expiry_hours"`

	Google GoogleConfig `yaml:"google"`

	FrontendOrigin string `yaml:"frontend_origin"`
	StoragePath    string `yaml:"storage_path"`

	Host string `yaml:"host"`
	Port string `yaml:"port"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// GoogleConfig describes the OAuth client and the endpoints it talks to.
// The URL fields are only overridden in tests or behind a proxy.
type GoogleConfig struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	RedirectURI   string `yaml:"redirect_uri"`
	DriveFolderID string `yaml:"drive_folder_id"`

	AuthURL    string `yaml:"auth_url"`
	TokenURL   string `yaml:"token_url"`
	APIBaseURL string `yaml:"api_base_url"`
}

// Load reads CONFIG_FILE (if set), applies environment overrides and defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.RedirectURI, "GOOGLE_REDIRECT_URI")
	setString(&c.Google.DriveFolderID, "DRIVE_FOLDER_ID")
	setString(&c.Google.AuthURL, "GOOGLE_AUTH_URL")
	setString(&c.Google.TokenURL, "GOOGLE_TOKEN_URL")
	setString(&c.Google.APIBaseURL, "GOOGLE_API_BASE_URL")
	setString(&c.FrontendOrigin, "FRONTEND_ORIGIN")
	setString(&c.StoragePath, "STORAGE_PATH")
	setString(&c.Host, "HOST")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if v := strings.TrimSpace(os.Getenv("JWT_EXPIRY_HOURS")); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return fmt.Errorf("invalid JWT_EXPIRY_HOURS %q", v)
		}
		c.JWTExpiryHours = hours
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = DefaultDatabaseURL
	}
	if c.JWTExpiryHours <= 0 {
		c.JWTExpiryHours = DefaultJWTExpiryHours
	}
	if c.FrontendOrigin == "" {
		c.FrontendOrigin = DefaultFrontendOrigin
	}
	c.FrontendOrigin = strings.TrimRight(c.FrontendOrigin, "/")
	if c.StoragePath == "" {
		c.StoragePath = DefaultStoragePath
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// AllowedOrigins lists the CORS origins: the configured frontend plus local dev servers.
func (c *Config) AllowedOrigins() []string {
	origins := []string{c.FrontendOrigin}
	for _, dev := range []string{"http://localhost:5173", "http://localhost:3000"} {
		if dev != c.FrontendOrigin {
			origins = append(origins, dev)
		}
	}
	return origins
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
