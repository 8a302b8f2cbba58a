// Package config provides configuration management for solodev.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (SOLODEV_*)
// 3. Project config (.solodev/config.yaml in the project root)
// 4. Home config (~/.solodev/config.yaml)
// 5. Defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all solodev configuration.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// BaseDir is the solodev data directory inside the project (default: .solodev).
	BaseDir string `yaml:"base_dir" json:"base_dir"`

	// DocsDir is the root of the project documents (default: docs).
	DocsDir string `yaml:"docs_dir" json:"docs_dir"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Actor is recorded as the approver. Empty means the OS user.
	Actor string `yaml:"actor" json:"actor"`

	// CacheTTL is how long a read state file is reused, as a Go duration.
	CacheTTL string `yaml:"cache_ttl" json:"cache_ttl"`

	// SizeWarningKB and SizeLimitKB bound the state file size.
	SizeWarningKB float64 `yaml:"size_warning_kb" json:"size_warning_kb"`
	SizeLimitKB   float64 `yaml:"size_limit_kb" json:"size_limit_kb"`

	// LockTimeout bounds the wait for the state lock, as a Go duration.
	LockTimeout string `yaml:"lock_timeout" json:"lock_timeout"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput        = "table"
	defaultBaseDir       = ".solodev"
	defaultDocsDir       = "docs"
	defaultCacheTTL      = "5s"
	defaultSizeWarningKB = 80
	defaultSizeLimitKB   = 100
	defaultLockTimeout   = "5s"
)

// Environment variables read by the loader.
const (
	EnvConfig        = "SOLODEV_CONFIG"
	EnvOutput        = "SOLODEV_OUTPUT"
	EnvBaseDir       = "SOLODEV_BASE_DIR"
	EnvDocsDir       = "SOLODEV_DOCS_DIR"
	EnvVerbose       = "SOLODEV_VERBOSE"
	EnvActor         = "SOLODEV_ACTOR"
	EnvCacheTTL      = "SOLODEV_CACHE_TTL"
	EnvSizeWarningKB = "SOLODEV_SIZE_WARNING_KB"
	EnvSizeLimitKB   = "SOLODEV_SIZE_LIMIT_KB"
	EnvLockTimeout   = "SOLODEV_LOCK_TIMEOUT"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:        defaultOutput,
		BaseDir:       defaultBaseDir,
		DocsDir:       defaultDocsDir,
		CacheTTL:      defaultCacheTTL,
		SizeWarningKB: defaultSizeWarningKB,
		SizeLimitKB:   defaultSizeLimitKB,
		LockTimeout:   defaultLockTimeout,
	}
}

// CacheTTLDuration parses CacheTTL, falling back to the default.
func (c *Config) CacheTTLDuration() time.Duration {
	return parseDuration(c.CacheTTL, defaultCacheTTL)
}

// LockTimeoutDuration parses LockTimeout, falling back to the default.
func (c *Config) LockTimeoutDuration() time.Duration {
	return parseDuration(c.LockTimeout, defaultLockTimeout)
}

func parseDuration(v, def string) time.Duration {
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(def)
	return d
}

// Validate reports values the CLI cannot use.
func (c *Config) Validate() error {
	var errs []error
	switch c.Output {
	case "table", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output: unsupported format %q (want table, json or yaml)", c.Output))
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		errs = append(errs, fmt.Errorf("cache_ttl: %w", err))
	}
	if _, err := time.ParseDuration(c.LockTimeout); err != nil {
		errs = append(errs, fmt.Errorf("lock_timeout: %w", err))
	}
	if c.SizeWarningKB >= c.SizeLimitKB {
		errs = append(errs, fmt.Errorf("size_warning_kb (%.0f) must be below size_limit_kb (%.0f)", c.SizeWarningKB, c.SizeLimitKB))
	}
	return errors.Join(errs...)
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
//
// projectDir locates .solodev/config.yaml; configPath, when set, replaces it.
// Missing files are skipped; a file that does not parse is an error.
func Load(projectDir, configPath string, flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, err := loadFromPath(homeConfigPath())
	if err != nil {
		return nil, err
	}
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, err := loadFromPath(projectConfigPath(projectDir, configPath))
	if err != nil {
		return nil, err
	}
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultBaseDir, "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath(projectDir, override string) string {
	if override != "" {
		return override
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfig)); env != "" {
		return env
	}
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		projectDir = cwd
	}
	return filepath.Join(projectDir, defaultBaseDir, "config.yaml")
}

// loadFromPath loads config from a YAML file. A missing file yields nil.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	env := envConfig()
	return merge(cfg, &env)
}

// envConfig collects the SOLODEV_* overrides into a Config.
func envConfig() Config {
	var c Config
	c.Output, _ = getEnvString(EnvOutput)
	c.BaseDir, _ = getEnvString(EnvBaseDir)
	c.DocsDir, _ = getEnvString(EnvDocsDir)
	c.Verbose, _ = getEnvBool(EnvVerbose)
	c.Actor, _ = getEnvString(EnvActor)
	c.CacheTTL, _ = getEnvString(EnvCacheTTL)
	c.SizeWarningKB, _ = getEnvFloat(EnvSizeWarningKB)
	c.SizeLimitKB, _ = getEnvFloat(EnvSizeLimitKB)
	c.LockTimeout, _ = getEnvString(EnvLockTimeout)
	return c
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeFloat overwrites dst with src when src is positive.
func mergeFloat(dst *float64, src float64) {
	if src > 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// Verbose can only be switched on by a later layer.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	mergeStr(&dst.BaseDir, src.BaseDir)
	mergeStr(&dst.DocsDir, src.DocsDir)
	if src.Verbose {
		dst.Verbose = true
	}
	mergeStr(&dst.Actor, src.Actor)
	mergeStr(&dst.CacheTTL, src.CacheTTL)
	mergeFloat(&dst.SizeWarningKB, src.SizeWarningKB)
	mergeFloat(&dst.SizeLimitKB, src.SizeLimitKB)
	mergeStr(&dst.LockTimeout, src.LockTimeout)
	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.solodev/config.yaml"
	SourceProject Source = ".solodev/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// getEnvBool returns the boolean value and whether it was truthy.
func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "true" || v == "1" {
		return true, true
	}
	return false, false
}

// getEnvFloat returns the parsed value and whether it was a positive number.
func getEnvFloat(key string) (float64, bool) {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

type resolved struct {
	Value  any    `json:"value" yaml:"value"`
	Source Source `json:"source" yaml:"source"`
}

// ResolvedConfig shows config values with their sources.
type ResolvedConfig struct {
	Output        resolved `json:"output" yaml:"output"`
	BaseDir       resolved `json:"base_dir" yaml:"base_dir"`
	DocsDir       resolved `json:"docs_dir" yaml:"docs_dir"`
	Verbose       resolved `json:"verbose" yaml:"verbose"`
	Actor         resolved `json:"actor" yaml:"actor"`
	CacheTTL      resolved `json:"cache_ttl" yaml:"cache_ttl"`
	SizeWarningKB resolved `json:"size_warning_kb" yaml:"size_warning_kb"`
	SizeLimitKB   resolved `json:"size_limit_kb" yaml:"size_limit_kb"`
	LockTimeout   resolved `json:"lock_timeout" yaml:"lock_timeout"`
}

// Entry is one resolved setting, in display order.
type Entry struct {
	Key    string
	Value  any
	Source Source
}

// Entries lists the resolved settings in a stable order.
func (rc *ResolvedConfig) Entries() []Entry {
	pairs := []struct {
		key string
		r   resolved
	}{
		{"output", rc.Output},
		{"base_dir", rc.BaseDir},
		{"docs_dir", rc.DocsDir},
		{"verbose", rc.Verbose},
		{"actor", rc.Actor},
		{"cache_ttl", rc.CacheTTL},
		{"size_warning_kb", rc.SizeWarningKB},
		{"size_limit_kb", rc.SizeLimitKB},
		{"lock_timeout", rc.LockTimeout},
	}
	out := make([]Entry, len(pairs))
	for i, p := range pairs {
		out[i] = Entry{Key: p.key, Value: p.r.Value, Source: p.r.Source}
	}
	return out
}

// layer is one level of the precedence chain, lowest first.
type layer struct {
	source Source
	cfg    *Config
}

// resolveField walks the layers and keeps the last one that sets the field.
func resolveField[T comparable](layers []layer, def T, get func(*Config) T) resolved {
	var zero T
	result := resolved{Value: def, Source: SourceDefault}
	for _, l := range layers {
		if l.cfg == nil {
			continue
		}
		if v := get(l.cfg); v != zero {
			result = resolved{Value: v, Source: l.source}
		}
	}
	return result
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > home > defaults.
// Unreadable config files are treated as absent.
func Resolve(projectDir, configPath string, flags *Config) *ResolvedConfig {
	homeConfig, _ := loadFromPath(homeConfigPath())
	projectConfig, _ := loadFromPath(projectConfigPath(projectDir, configPath))
	env := envConfig()

	layers := []layer{
		{SourceHome, homeConfig},
		{SourceProject, projectConfig},
		{SourceEnv, &env},
		{SourceFlag, flags},
	}

	return &ResolvedConfig{
		Output:        resolveField(layers, defaultOutput, func(c *Config) string { return c.Output }),
		BaseDir:       resolveField(layers, defaultBaseDir, func(c *Config) string { return c.BaseDir }),
		DocsDir:       resolveField(layers, defaultDocsDir, func(c *Config) string { return c.DocsDir }),
		Verbose:       resolveField(layers, false, func(c *Config) bool { return c.Verbose }),
		Actor:         resolveField(layers, "", func(c *Config) string { return c.Actor }),
		CacheTTL:      resolveField(layers, defaultCacheTTL, func(c *Config) string { return c.CacheTTL }),
		SizeWarningKB: resolveField(layers, float64(defaultSizeWarningKB), func(c *Config) float64 { return c.SizeWarningKB }),
		SizeLimitKB:   resolveField(layers, float64(defaultSizeLimitKB), func(c *Config) float64 { return c.SizeLimitKB }),
		LockTimeout:   resolveField(layers, defaultLockTimeout, func(c *Config) string { return c.LockTimeout }),
	}
}
