package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	FileName        = "habitkit.yaml"
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	defaultChannel  = "habitkit:sessions-changed"
	defaultHTTPAddr = "127.0.0.1:8787"
)

type Config struct {
	DataDir     string         `yaml:"-" validate:"required"`
	UserID      string         `yaml:"user_id"`
	CatalogPath string         `yaml:"catalog_path" validate:"required"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	HTTP        HTTPConfig     `yaml:"http"`
	Log         LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres"`
	Path   string `yaml:"path" validate:"required_if=Driver sqlite"`
	DSN    string `yaml:"dsn" validate:"required_if=Driver postgres"`
}

// RedisConfig is optional; an empty Addr disables Redis fan-out.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Channel  string `yaml:"channel" validate:"required"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

var validate = validator.New()

// New returns the defaults rooted at dataDir.
func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := Config{
		DataDir:     dataDir,
		CatalogPath: filepath.Join(dataDir, "challenges.yaml"),
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(dataDir, "habitkit.db"),
		},
		Redis: RedisConfig{Channel: defaultChannel},
		HTTP:  HTTPConfig{Addr: defaultHTTPAddr},
		Log:   LogConfig{Level: "info", Format: "auto"},
	}
	return cfg, nil
}

// Load layers the YAML file (when present), then environment overrides, over
// the defaults. An empty path means <dataDir>/habitkit.yaml.
func Load(dataDir, path string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dataDir, FileName)
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg.resolvePaths()
	if v := os.Getenv("HABITKIT_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("HABITKIT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// resolvePaths makes relative file paths relative to the data dir.
func (c *Config) resolvePaths() {
	if c.CatalogPath != "" && !filepath.IsAbs(c.CatalogPath) {
		c.CatalogPath = filepath.Join(c.DataDir, c.CatalogPath)
	}
	if c.Database.Path != "" && !filepath.IsAbs(c.Database.Path) {
		c.Database.Path = filepath.Join(c.DataDir, c.Database.Path)
	}
}
