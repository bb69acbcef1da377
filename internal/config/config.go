// Package config provides configuration loading and structs for hyoka evaluation runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override backend settings from the file.
const (
	EnvBackendURL      = "HYOKA_BACKEND_URL"
	EnvBackendUsername = "HYOKA_BACKEND_USERNAME"
	EnvBackendPassword = "HYOKA_BACKEND_PASSWORD"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Backend    BackendConfig    `yaml:"backend"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Index      IndexConfig      `yaml:"index"`
	Transform  TransformConfig  `yaml:"transform"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// BackendConfig holds the search service connection.
type BackendConfig struct {
	URL                string        `yaml:"url"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
	IndexName          string        `yaml:"index_name"`
}

// ExecutorConfig holds bulk executor settings.
type ExecutorConfig struct {
	Concurrency        int     `yaml:"concurrency"`
	IndexFailurePolicy string  `yaml:"index_failure_policy"`
	QueryFailurePolicy string  `yaml:"query_failure_policy"`
	RequestsPerSecond  float64 `yaml:"requests_per_second"`
	ProgressEvery      int     `yaml:"progress_every"`
}

// EvaluationConfig holds dataset and cutoff settings.
type EvaluationConfig struct {
	DatasetPath string `yaml:"dataset_path"`
	K           int    `yaml:"k"`
	Size        int    `yaml:"size"`
	Split       string `yaml:"split"`
	Strategy    string `yaml:"strategy"`
}

// IndexConfig holds in-process ANN index parameters.
type IndexConfig struct {
	Family         string `yaml:"family"`
	NList          int    `yaml:"nlist"`
	NProbe         int    `yaml:"nprobe"`
	HNSWM          int    `yaml:"hnsw_m"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch       int    `yaml:"ef_search"`
	LSHBits        int    `yaml:"lsh_bits"`
	Seed           int64  `yaml:"seed"`
}

// TransformConfig holds vector transform parameters.
type TransformConfig struct {
	HashDim              int   `yaml:"hash_dim"`
	RotateOutputDim      int   `yaml:"rotate_output_dim"`
	Centroids            int   `yaml:"centroids"`
	CentroidsPerDocument int   `yaml:"centroids_per_document"`
	CentroidsPerQuery    int   `yaml:"centroids_per_query"`
	KMeansIterations     int   `yaml:"kmeans_iterations"`
	Seed                 int64 `yaml:"seed"`
}

// ServerConfig holds HTTP server settings for the local backend.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the run database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MetricsConfig holds the Prometheus listen address. Empty disables the listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a config with every default applied and environment overrides read.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	applyEnv(cfg, nil)
	return cfg
}

// Load reads and parses the config file at path, applies defaults, expands paths,
// and applies backend overrides from the environment and an optional .env next to the file.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Evaluation.DatasetPath != "" {
		cfg.Evaluation.DatasetPath = expandPath(cfg.Evaluation.DatasetPath, configDir)
	}

	dotenv, err := godotenv.Read(filepath.Join(configDir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	applyEnv(&cfg, dotenv)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnv overrides backend settings. The process environment wins over dotenv.
func applyEnv(cfg *Config, dotenv map[string]string) {
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if v, ok := lookup(EnvBackendURL); ok && v != "" {
		cfg.Backend.URL = v
	}
	if v, ok := lookup(EnvBackendUsername); ok {
		cfg.Backend.Username = v
	}
	if v, ok := lookup(EnvBackendPassword); ok {
		cfg.Backend.Password = v
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
