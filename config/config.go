// Package config loads the YAML configuration shared by the API server and the web form.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultPath is used when CONFIG_PATH is not set.
	DefaultPath = "config.yaml"

	EnvConfigPath    = "CONFIG_PATH"
	EnvAllowedOrigin = "ALLOWED_ORIGIN"
	EnvAPIBaseURL    = "API_BASE_URL"
)

type Config struct {
	HTTP   HTTP   `yaml:"http"`
	Log    Log    `yaml:"log"`
	ML     ML     `yaml:"ml"`
	Webapp Webapp `yaml:"webapp"`
}

type HTTP struct {
	Port          int           `yaml:"port" validate:"min=1,max=65535"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	AllowedOrigin string        `yaml:"allowed_origin" validate:"required"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" validate:"gt=0"`
}

// Log controls the zap logger. An empty File logs to stdout only.
type Log struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

type ML struct {
	ModelType      string `yaml:"model_type" validate:"required,oneof=logistic_regression decision_tree random_forest"`
	ModelPath      string `yaml:"model_path" validate:"required"`
	FeaturesPath   string `yaml:"features_path" validate:"required"`
	ClassesPath    string `yaml:"classes_path" validate:"required"`
	CacheSize      int    `yaml:"cache_size" validate:"gte=0"`
	WatchArtifacts bool   `yaml:"watch_artifacts"`
}

type Webapp struct {
	Port       int           `yaml:"port" validate:"min=1,max=65535"`
	APIBaseURL string        `yaml:"api_base_url" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	Columns    int           `yaml:"columns" validate:"min=1,max=6"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTP{
			Port:          5000,
			Timeout:       30 * time.Second,
			AllowedOrigin: "http://localhost:8501",
			MaxBodyBytes:  1 << 20,
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		ML: ML{
			ModelType:    "logistic_regression",
			ModelPath:    "models/model.json",
			FeaturesPath: "models/features_metadata.json",
			ClassesPath:  "models/class_names.json",
		},
		Webapp: Webapp{
			Port:       8501,
			APIBaseURL: "http://localhost:5000",
			Timeout:    5 * time.Second,
			Columns:    3,
		},
	}
}

// Load reads the file named by CONFIG_PATH, or config.yaml when unset. A missing
// default file is not an error; a missing explicit file is. Env overrides are
// applied last, then the result is validated.
func Load() (*Config, error) {
	path, explicit := os.LookupEnv(EnvConfigPath)
	if !explicit || path == "" {
		path = DefaultPath
		explicit = false
	}

	cfg, err := LoadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg = Default()
		} else {
			return nil, err
		}
	}

	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes path on top of Default. Relative artifact paths are made
// relative to the directory holding the file.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	cfg := Default()
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.ML.ModelPath = resolve(dir, cfg.ML.ModelPath)
	cfg.ML.FeaturesPath = resolve(dir, cfg.ML.FeaturesPath)
	cfg.ML.ClassesPath = resolve(dir, cfg.ML.ClassesPath)
	if cfg.Log.File != "" {
		cfg.Log.File = resolve(dir, cfg.Log.File)
	}
	return cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if origin := os.Getenv(EnvAllowedOrigin); origin != "" {
		cfg.HTTP.AllowedOrigin = origin
	}
	if baseURL := os.Getenv(EnvAPIBaseURL); baseURL != "" {
		cfg.Webapp.APIBaseURL = baseURL
	}
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
