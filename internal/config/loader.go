// loader.go — Configuration loading with priority cascade.
// Priority: defaults < global config < project config < .env file < env vars < flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RENDERLENS_"

// Config holds all resolved configuration values.
type Config struct {
	SlowThresholdMs float64  `yaml:"slow_threshold_ms" json:"slow_threshold_ms"`
	MaxHistorySize  int      `yaml:"max_history_size" json:"max_history_size"`
	CompareStrategy string   `yaml:"compare_strategy" json:"compare_strategy"`
	SkipKeys        []string `yaml:"skip_keys" json:"skip_keys"`
	Verbose         bool     `yaml:"verbose" json:"verbose"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	Format    string `yaml:"format" json:"format"`

	HTTPAddr       string   `yaml:"http_addr" json:"http_addr"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	RedisAddr      string   `yaml:"redis_addr" json:"redis_addr"`
	RedisChannel   string   `yaml:"redis_channel" json:"redis_channel"`
}

// FlagOverrides holds values explicitly set via command-line flags.
// Nil pointer means the flag was not set (so lower-priority values are kept).
type FlagOverrides struct {
	SlowThresholdMs *float64
	MaxHistorySize  *int
	CompareStrategy *string
	SkipKeys        []string
	Verbose         *bool
	LogLevel        *string
	Format          *string
	HTTPAddr        *string
	RedisAddr       *string
	RedisChannel    *string
}

// Defaults returns the base configuration.
func Defaults() Config {
	return Config{
		SlowThresholdMs: 16,
		MaxHistorySize:  1000,
		CompareStrategy: "shallow",
		LogLevel:        "info",
		LogFormat:       "text",
		Format:          "human",
		HTTPAddr:        "127.0.0.1:7420",
		AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		RedisChannel:    "renderlens:events",
	}
}

// Load builds the final configuration by applying the priority cascade:
// defaults < global (~/.renderlens/config.yaml) < project (.renderlens.yaml)
// < .env in projectDir < RENDERLENS_* env vars < flags.
func Load(projectDir string, flags *FlagOverrides) (Config, error) {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadFile(&cfg, filepath.Join(home, ".renderlens", "config.yaml")); err != nil {
			return cfg, fmt.Errorf("global config: %w", err)
		}
	}

	if err := loadProjectConfig(&cfg, projectDir); err != nil {
		return cfg, fmt.Errorf("project config: %w", err)
	}

	dotenv, err := readDotenv(filepath.Join(projectDir, ".env"))
	if err != nil {
		return cfg, fmt.Errorf("dotenv: %w", err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := loadEnvVars(&cfg, lookup); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}

	if flags != nil {
		applyFlags(&cfg, flags)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// projectFiles are tried in order; the first one present wins.
var projectFiles = []string{".renderlens.yaml", ".renderlens.yml", ".renderlens.json"}

// loadProjectConfig reads the project config from dir if one exists.
func loadProjectConfig(cfg *Config, dir string) error {
	for _, name := range projectFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return loadFile(cfg, path)
		}
	}
	return nil
}

// fileConfig uses pointers to distinguish "not set" from zero values.
type fileConfig struct {
	SlowThresholdMs *float64  `yaml:"slow_threshold_ms"`
	MaxHistorySize  *int      `yaml:"max_history_size"`
	CompareStrategy *string   `yaml:"compare_strategy"`
	SkipKeys        *[]string `yaml:"skip_keys"`
	Verbose         *bool     `yaml:"verbose"`
	LogLevel        *string   `yaml:"log_level"`
	LogFormat       *string   `yaml:"log_format"`
	Format          *string   `yaml:"format"`
	HTTPAddr        *string   `yaml:"http_addr"`
	AllowedOrigins  *[]string `yaml:"allowed_origins"`
	RedisAddr       *string   `yaml:"redis_addr"`
	RedisChannel    *string   `yaml:"redis_channel"`
}

// loadFile reads a YAML (or JSON) config file and merges set values into cfg.
// A missing file is not an error.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	setIf(&cfg.SlowThresholdMs, f.SlowThresholdMs)
	setIf(&cfg.MaxHistorySize, f.MaxHistorySize)
	setIf(&cfg.CompareStrategy, f.CompareStrategy)
	setIf(&cfg.SkipKeys, f.SkipKeys)
	setIf(&cfg.Verbose, f.Verbose)
	setIf(&cfg.LogLevel, f.LogLevel)
	setIf(&cfg.LogFormat, f.LogFormat)
	setIf(&cfg.Format, f.Format)
	setIf(&cfg.HTTPAddr, f.HTTPAddr)
	setIf(&cfg.AllowedOrigins, f.AllowedOrigins)
	setIf(&cfg.RedisAddr, f.RedisAddr)
	setIf(&cfg.RedisChannel, f.RedisChannel)
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// readDotenv parses a .env file without touching the process environment.
func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return godotenv.Read(path)
}

// loadEnvVars applies RENDERLENS_* overrides found through lookup.
func loadEnvVars(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("SLOW_THRESHOLD_MS"); ok {
		ms, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sSLOW_THRESHOLD_MS: %w", EnvPrefix, err)
		}
		cfg.SlowThresholdMs = ms
	}
	if v, ok := get("MAX_HISTORY_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_HISTORY_SIZE: %w", EnvPrefix, err)
		}
		cfg.MaxHistorySize = n
	}
	if v, ok := get("VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sVERBOSE: %w", EnvPrefix, err)
		}
		cfg.Verbose = b
	}
	if v, ok := get("SKIP_KEYS"); ok {
		cfg.SkipKeys = SplitList(v)
	}
	if v, ok := get("ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = SplitList(v)
	}

	strs := map[string]*string{
		"COMPARE_STRATEGY": &cfg.CompareStrategy,
		"LOG_LEVEL":        &cfg.LogLevel,
		"LOG_FORMAT":       &cfg.LogFormat,
		"FORMAT":           &cfg.Format,
		"HTTP_ADDR":        &cfg.HTTPAddr,
		"REDIS_ADDR":       &cfg.RedisAddr,
		"REDIS_CHANNEL":    &cfg.RedisChannel,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	return nil
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyFlags applies command-line flag overrides (highest priority).
func applyFlags(cfg *Config, flags *FlagOverrides) {
	setIf(&cfg.SlowThresholdMs, flags.SlowThresholdMs)
	setIf(&cfg.MaxHistorySize, flags.MaxHistorySize)
	setIf(&cfg.CompareStrategy, flags.CompareStrategy)
	setIf(&cfg.Verbose, flags.Verbose)
	setIf(&cfg.LogLevel, flags.LogLevel)
	setIf(&cfg.Format, flags.Format)
	setIf(&cfg.HTTPAddr, flags.HTTPAddr)
	setIf(&cfg.RedisAddr, flags.RedisAddr)
	setIf(&cfg.RedisChannel, flags.RedisChannel)
	if flags.SkipKeys != nil {
		cfg.SkipKeys = flags.SkipKeys
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c Config) Validate() error {
	if c.SlowThresholdMs <= 0 {
		return fmt.Errorf("slow_threshold_ms must be positive, got %v", c.SlowThresholdMs)
	}
	if c.MaxHistorySize < 1 {
		return fmt.Errorf("max_history_size must be at least 1, got %d", c.MaxHistorySize)
	}
	if _, err := diff.ParseStrategy(c.CompareStrategy); err != nil {
		return fmt.Errorf("compare_strategy: %w", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	validFormats := map[string]bool{"human": true, "json": true, "csv": true}
	if !validFormats[c.Format] {
		return fmt.Errorf("format must be human, json, or csv, got %q", c.Format)
	}
	if c.RedisAddr != "" && c.RedisChannel == "" {
		return errors.New("redis_channel is required when redis_addr is set")
	}
	return nil
}

// Logger builds the root logger described by the config.
func (c Config) Logger() (*log.Logger, error) {
	return logging.New(logging.Options{Level: c.LogLevel, Format: c.LogFormat})
}

// EngineOptions converts the config into engine options. The strategy has
// already been validated by Load.
func (c Config) EngineOptions(logger *log.Logger) engine.Options {
	strategy, _ := diff.ParseStrategy(c.CompareStrategy)
	return engine.Options{
		SlowThresholdMs: c.SlowThresholdMs,
		MaxHistorySize:  c.MaxHistorySize,
		Strategy:        strategy,
		SkipKeys:        c.SkipKeys,
		Verbose:         c.Verbose,
		Logger:          logger,
	}
}
