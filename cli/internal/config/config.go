// Package config provides lmcommit configuration with a defined load order:
// CLI flags > environment variables > repo config > global config > defaults.
//
// Paths:
//   - Repo: .lmcommit.toml, or .lmcommit.yaml / .lmcommit.yml (relative to repo root; TOML wins)
//   - Global: XDG config dir, e.g. ~/.config/lmcommit/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - LMCOMMIT_PROVIDER (lmstudio or ollama), LMCOMMIT_MODEL, LMCOMMIT_BASE_URL,
//   - LMCOMMIT_LOCALE, LMCOMMIT_MAX_LENGTH, LMCOMMIT_STYLE (legacy or conventional),
//   - LMCOMMIT_MAX_TOKENS, LMCOMMIT_TEMPERATURE, LMCOMMIT_TIMEOUT (Go duration string or integer seconds),
//   - LMCOMMIT_TRUNCATE_BUDGET, LMCOMMIT_CONTEXT_LIMIT, LMCOMMIT_WARN_THRESHOLD,
//   - LMCOMMIT_EXCLUDE (comma-separated pathspecs), LMCOMMIT_LOG_LEVEL.
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"lmcommit/cli/internal/commitmsg"
	"lmcommit/cli/internal/erruser"
)

// Model server providers.
const (
	ProviderLMStudio = "lmstudio"
	ProviderOllama   = "ollama"
)

// Config holds all lmcommit configuration. An empty BaseURL means the
// provider's default address (see EffectiveBaseURL).
type Config struct {
	Provider string `toml:"provider" yaml:"provider"`
	Model    string `toml:"model" yaml:"model"`
	BaseURL  string `toml:"base_url" yaml:"base_url"`
	// Locale is the language the message is written in (e.g. en, ja).
	Locale    string          `toml:"locale" yaml:"locale"`
	MaxLength int             `toml:"max_length" yaml:"max_length"`
	Style     commitmsg.Style `toml:"style" yaml:"style"`
	// MaxTokens caps the model reply; Temperature is passed through to the server.
	MaxTokens   int           `toml:"max_tokens" yaml:"max_tokens"`
	Temperature float64       `toml:"temperature" yaml:"temperature"`
	Timeout     time.Duration `toml:"timeout" yaml:"timeout"`
	// TruncateBudget is the character budget for the truncated-diff retry.
	TruncateBudget int `toml:"truncate_budget" yaml:"truncate_budget"`
	// ContextLimit and WarnThreshold drive the advisory token pre-check only.
	ContextLimit  int     `toml:"context_limit" yaml:"context_limit"`
	WarnThreshold float64 `toml:"warn_threshold" yaml:"warn_threshold"`
	// Exclude lists extra pathspecs left out of the staged diff, on top of the lockfile defaults.
	Exclude  []string `toml:"exclude" yaml:"exclude"`
	LogLevel string   `toml:"log_level" yaml:"log_level"`
}

// Overrides represents optional CLI flag overrides. Non-nil pointer means
// "override with this value". Exclude is appended rather than replaced.
type Overrides struct {
	Provider       *string
	Model          *string
	BaseURL        *string
	Locale         *string
	MaxLength      *int
	Style          *string
	MaxTokens      *int
	Temperature    *float64
	Timeout        *time.Duration
	TruncateBudget *int
	LogLevel       *string
	Exclude        []string
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// RepoRoot is the repository root; if set, repo config is RepoRoot/.lmcommit.toml (or .yaml).
	RepoRoot string
	// GlobalConfigPath is the global config file path; if empty, XDG path is used.
	GlobalConfigPath string
	// Env is the environment key=value slice; if nil, os.Environ() is used.
	Env []string
	// Overrides are applied last (highest precedence).
	Overrides *Overrides
}

const (
	_defaultProvider       = ProviderLMStudio
	_defaultModel          = "mistral-nemo-japanese-instruct-2408"
	_defaultLMStudioURL    = "http://localhost:1234"
	_defaultOllamaURL      = "http://localhost:11434"
	_defaultLocale         = "en"
	_defaultMaxLength      = 200
	_defaultStyle          = commitmsg.StyleConventional
	_defaultMaxTokens      = commitmsg.DefaultMaxTokens
	_defaultTemperature    = 0.7
	_defaultTimeout        = 2 * time.Minute
	_defaultTruncateBudget = commitmsg.DefaultBudget
	_defaultContextLimit   = 8192
	_defaultWarnThreshold  = 0.9
	_defaultLogLevel       = "info"
)

// repoConfigNames are tried in order; the first existing file is used.
var repoConfigNames = []string{".lmcommit.toml", ".lmcommit.yaml", ".lmcommit.yml"}

var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

// errIntOverflow is returned when an int64 value does not fit in int (e.g. on 32-bit or huge TOML/env values).
var errIntOverflow = errors.New("value out of range for int")

// int64ToInt converts n to int. It returns an error if n is outside the range of int (e.g. overflow on 32-bit).
func int64ToInt(n int64) (int, error) {
	if n < int64(math.MinInt) || n > int64(math.MaxInt) {
		return 0, errIntOverflow
	}
	return int(n), nil
}

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		Provider:       _defaultProvider,
		Model:          _defaultModel,
		Locale:         _defaultLocale,
		MaxLength:      _defaultMaxLength,
		Style:          _defaultStyle,
		MaxTokens:      _defaultMaxTokens,
		Temperature:    _defaultTemperature,
		Timeout:        _defaultTimeout,
		TruncateBudget: _defaultTruncateBudget,
		ContextLimit:   _defaultContextLimit,
		WarnThreshold:  _defaultWarnThreshold,
		LogLevel:       _defaultLogLevel,
	}
}

// EffectiveBaseURL returns BaseURL if set, otherwise the default address of
// the configured provider.
func (c Config) EffectiveBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Provider == ProviderOllama {
		return _defaultOllamaURL
	}
	return _defaultLMStudioURL
}

// Load loads configuration with precedence: defaults < global file < repo file < env < overrides.
// Missing config files are ignored. Invalid TOML/YAML or invalid env values return an error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New("Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "lmcommit", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}

	if opts.RepoRoot != "" {
		if repoPath := findRepoConfig(opts.RepoRoot); repoPath != "" {
			if err := mergeFile(&cfg, repoPath); err != nil {
				return nil, err
			}
		}
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	if err := applyOverrides(&cfg, opts.Overrides); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findRepoConfig(repoRoot string) string {
	for _, name := range repoConfigNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// fileConfig mirrors Config with pointer fields so absent keys keep the
// previous layer's value.
type fileConfig struct {
	Provider       *string  `toml:"provider" yaml:"provider"`
	Model          *string  `toml:"model" yaml:"model"`
	BaseURL        *string  `toml:"base_url" yaml:"base_url"`
	Locale         *string  `toml:"locale" yaml:"locale"`
	MaxLength      *int64   `toml:"max_length" yaml:"max_length"`
	Style          *string  `toml:"style" yaml:"style"`
	MaxTokens      *int64   `toml:"max_tokens" yaml:"max_tokens"`
	Temperature    *float64 `toml:"temperature" yaml:"temperature"`
	Timeout        *string  `toml:"timeout" yaml:"timeout"`
	TruncateBudget *int64   `toml:"truncate_budget" yaml:"truncate_budget"`
	ContextLimit   *int64   `toml:"context_limit" yaml:"context_limit"`
	WarnThreshold  *float64 `toml:"warn_threshold" yaml:"warn_threshold"`
	Exclude        []string `toml:"exclude" yaml:"exclude"`
	LogLevel       *string  `toml:"log_level" yaml:"log_level"`
}

// mergeFile reads path and merges into cfg. Only overwrites fields that are
// present and non-zero in the file (so explicit empty/zero keeps previous value).
// Missing file is skipped (no error). Files ending in .yaml or .yml are YAML;
// anything else is TOML.
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New("Invalid configuration file.", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return erruser.New("Could not read configuration file.", err)
	}
	var file fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return erruser.Newf(err, "Invalid configuration in %s.", filepath.Base(path))
		}
	default:
		if _, err := toml.Decode(string(data), &file); err != nil {
			return erruser.Newf(err, "Invalid configuration in %s.", filepath.Base(path))
		}
	}
	return file.apply(cfg)
}

func (f *fileConfig) apply(cfg *Config) error {
	if f.Provider != nil && *f.Provider != "" {
		p, err := validateProvider(*f.Provider)
		if err != nil {
			return err
		}
		cfg.Provider = p
	}
	if f.Model != nil && *f.Model != "" {
		cfg.Model = *f.Model
	}
	if f.BaseURL != nil && *f.BaseURL != "" {
		cfg.BaseURL = *f.BaseURL
	}
	if f.Locale != nil && strings.TrimSpace(*f.Locale) != "" {
		cfg.Locale = strings.TrimSpace(*f.Locale)
	}
	if err := setPositive(&cfg.MaxLength, f.MaxLength, "max_length"); err != nil {
		return err
	}
	if f.Style != nil && *f.Style != "" {
		cfg.Style = commitmsg.ParseStyle(*f.Style, cfg.Style)
	}
	if err := setPositive(&cfg.MaxTokens, f.MaxTokens, "max_tokens"); err != nil {
		return err
	}
	if f.Temperature != nil && *f.Temperature >= 0 && *f.Temperature <= 2 {
		cfg.Temperature = *f.Temperature
	}
	if f.Timeout != nil && *f.Timeout != "" {
		d, err := parseDuration(*f.Timeout)
		if err != nil {
			return erruser.New("Configuration timeout is invalid.", err)
		}
		cfg.Timeout = d
	}
	if err := setPositive(&cfg.TruncateBudget, f.TruncateBudget, "truncate_budget"); err != nil {
		return err
	}
	if err := setPositive(&cfg.ContextLimit, f.ContextLimit, "context_limit"); err != nil {
		return err
	}
	if f.WarnThreshold != nil && *f.WarnThreshold >= 0 {
		cfg.WarnThreshold = *f.WarnThreshold
	}
	if len(f.Exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, f.Exclude...)
	}
	if f.LogLevel != nil && *f.LogLevel != "" {
		lvl, err := validateLogLevel(*f.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = lvl
	}
	return nil
}

// setPositive sets *dst from v when v is present and positive.
func setPositive(dst *int, v *int64, key string) error {
	if v == nil || *v <= 0 {
		return nil
	}
	n, err := int64ToInt(*v)
	if err != nil {
		return erruser.Newf(err, "Configuration %s value out of range.", key)
	}
	*dst = n
	return nil
}

func validateProvider(s string) (string, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case ProviderLMStudio, ProviderOllama:
		return norm, nil
	}
	return "", erruser.New("Invalid provider; use lmstudio or ollama.", nil)
}

func validateLogLevel(s string) (string, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if _, ok := validLogLevels[norm]; !ok {
		return "", erruser.New("Invalid log level; use debug, info, warn, or error.", nil)
	}
	return norm, nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	// Try Go duration first (e.g. "5m", "30s")
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	// Try integer seconds
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * time.Second, nil
}

// env key names for config
const (
	envProvider       = "LMCOMMIT_PROVIDER"
	envModel          = "LMCOMMIT_MODEL"
	envBaseURL        = "LMCOMMIT_BASE_URL"
	envLocale         = "LMCOMMIT_LOCALE"
	envMaxLength      = "LMCOMMIT_MAX_LENGTH"
	envStyle          = "LMCOMMIT_STYLE"
	envMaxTokens      = "LMCOMMIT_MAX_TOKENS"
	envTemperature    = "LMCOMMIT_TEMPERATURE"
	envTimeout        = "LMCOMMIT_TIMEOUT"
	envTruncateBudget = "LMCOMMIT_TRUNCATE_BUDGET"
	envContextLimit   = "LMCOMMIT_CONTEXT_LIMIT"
	envWarnThreshold  = "LMCOMMIT_WARN_THRESHOLD"
	envExclude        = "LMCOMMIT_EXCLUDE"
	envLogLevel       = "LMCOMMIT_LOG_LEVEL"
)

func applyEnv(cfg *Config, env []string) error {
	vals := make(map[string]string)
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(e[:idx])
		val := strings.TrimSpace(e[idx+1:])
		vals[key] = val
	}
	if v, ok := vals[envProvider]; ok && v != "" {
		p, err := validateProvider(v)
		if err != nil {
			return err
		}
		cfg.Provider = p
	}
	if v, ok := vals[envModel]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := vals[envBaseURL]; ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := vals[envLocale]; ok && v != "" {
		cfg.Locale = v
	}
	if v, ok := vals[envStyle]; ok && v != "" {
		cfg.Style = commitmsg.ParseStyle(v, cfg.Style)
	}
	for _, iv := range []struct {
		key string
		dst *int
	}{
		{envMaxLength, &cfg.MaxLength},
		{envMaxTokens, &cfg.MaxTokens},
		{envTruncateBudget, &cfg.TruncateBudget},
		{envContextLimit, &cfg.ContextLimit},
	} {
		v, ok := vals[iv.key]
		if !ok || v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return erruser.Newf(err, "%s must be a valid number.", iv.key)
		}
		if n <= 0 {
			return erruser.Newf(nil, "%s must be positive.", iv.key)
		}
		*iv.dst, err = int64ToInt(n)
		if err != nil {
			return erruser.Newf(err, "%s value out of range.", iv.key)
		}
	}
	if v, ok := vals[envTemperature]; ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return erruser.New("LMCOMMIT_TEMPERATURE must be a valid number.", err)
		}
		if f < 0 || f > 2 {
			return erruser.New("LMCOMMIT_TEMPERATURE must be between 0 and 2.", nil)
		}
		cfg.Temperature = f
	}
	if v, ok := vals[envTimeout]; ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return erruser.New("LMCOMMIT_TIMEOUT must be a valid duration.", err)
		}
		cfg.Timeout = d
	}
	if v, ok := vals[envWarnThreshold]; ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return erruser.New("LMCOMMIT_WARN_THRESHOLD must be a valid number.", err)
		}
		cfg.WarnThreshold = f
	}
	if v, ok := vals[envExclude]; ok && v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Exclude = append(cfg.Exclude, p)
			}
		}
	}
	if v, ok := vals[envLogLevel]; ok && v != "" {
		lvl, err := validateLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = lvl
	}
	return nil
}

func applyOverrides(cfg *Config, o *Overrides) error {
	if o == nil {
		return nil
	}
	if o.Provider != nil && *o.Provider != "" {
		p, err := validateProvider(*o.Provider)
		if err != nil {
			return err
		}
		cfg.Provider = p
	}
	if o.Model != nil && *o.Model != "" {
		cfg.Model = *o.Model
	}
	if o.BaseURL != nil && *o.BaseURL != "" {
		cfg.BaseURL = *o.BaseURL
	}
	if o.Locale != nil && *o.Locale != "" {
		cfg.Locale = *o.Locale
	}
	if o.MaxLength != nil && *o.MaxLength > 0 {
		cfg.MaxLength = *o.MaxLength
	}
	if o.Style != nil && *o.Style != "" {
		cfg.Style = commitmsg.ParseStyle(*o.Style, cfg.Style)
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		cfg.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		if *o.Temperature < 0 || *o.Temperature > 2 {
			return erruser.New("Temperature must be between 0 and 2.", nil)
		}
		cfg.Temperature = *o.Temperature
	}
	if o.Timeout != nil && *o.Timeout > 0 {
		cfg.Timeout = *o.Timeout
	}
	if o.TruncateBudget != nil && *o.TruncateBudget > 0 {
		cfg.TruncateBudget = *o.TruncateBudget
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		lvl, err := validateLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = lvl
	}
	cfg.Exclude = append(cfg.Exclude, o.Exclude...)
	return nil
}
