package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/KaramelBytes/ainsight/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. AINSIGHT_MODEL.
const EnvPrefix = "AINSIGHT"

// Global configuration structure.
type Global struct {
	// APIKey is used by the CLI commands only; the web UI asks each visitor.
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Analysis
	MaxRowsForAnalysis int     `mapstructure:"max_rows_for_analysis" yaml:"max_rows_for_analysis"`
	SampleSeed         int64   `mapstructure:"sample_seed" yaml:"sample_seed"`
	DataTemperature    float64 `mapstructure:"data_temperature" yaml:"data_temperature"`
	PreviewRows        int     `mapstructure:"preview_rows" yaml:"preview_rows"`

	// CSV parsing
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`

	// Web server
	ListenAddr         string `mapstructure:"listen_addr" yaml:"listen_addr"`
	SessionSecret      string `mapstructure:"session_secret" yaml:"session_secret"`
	SessionMaxAgeSec   int    `mapstructure:"session_max_age_sec" yaml:"session_max_age_sec"`
	SessionIdleMinutes int    `mapstructure:"session_idle_minutes" yaml:"session_idle_minutes"`
	// SessionSecureCookie marks the cookie Secure; set it when served over TLS.
	SessionSecureCookie bool `mapstructure:"session_secure_cookie" yaml:"session_secure_cookie"`
	MaxUploadMB         int  `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("base_url", "https://api.openai.com/v1")
	// HTTP/retry defaults; one attempt means no retry
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Analysis defaults
	v.SetDefault("max_rows_for_analysis", 500)
	v.SetDefault("sample_seed", 42)
	v.SetDefault("data_temperature", 0.5)
	v.SetDefault("preview_rows", 100)
	v.SetDefault("delimiter", ",")
	v.SetDefault("decimal_separator", ".")
	v.SetDefault("thousands_separator", "")
	// Web defaults
	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("session_secret", "")
	v.SetDefault("session_max_age_sec", 86400)
	v.SetDefault("session_idle_minutes", 60)
	v.SetDefault("session_secure_cookie", false)
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("log_format", "text")
}

// Defaults returns the built-in configuration with env overrides applied and
// no config file read.
func Defaults() (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)
	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Dir returns ~/.ainsight.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".ainsight"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.ainsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flag overrides are applied by
// the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Global) Validate() error {
	if c.MaxRowsForAnalysis <= 0 {
		return fmt.Errorf("max_rows_for_analysis must be positive, got %d", c.MaxRowsForAnalysis)
	}
	if c.DataTemperature < 0 || c.DataTemperature > 2 {
		return fmt.Errorf("data_temperature must be within [0, 2], got %v", c.DataTemperature)
	}
	for key, val := range map[string]string{"delimiter": c.Delimiter, "decimal_separator": c.DecimalSeparator} {
		if utf8.RuneCountInString(val) != 1 {
			return fmt.Errorf("%s must be a single character, got %q", key, val)
		}
	}
	if utf8.RuneCountInString(c.ThousandsSeparator) > 1 {
		return fmt.Errorf("thousands_separator must be at most one character, got %q", c.ThousandsSeparator)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ParseOptions converts the CSV settings for the parser. Call Validate first.
func (c *Global) ParseOptions() analysis.ParseOptions {
	first := func(s string) rune {
		r, _ := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			return 0
		}
		return r
	}
	return analysis.ParseOptions{
		Delimiter:          first(c.Delimiter),
		DecimalSeparator:   first(c.DecimalSeparator),
		ThousandsSeparator: first(c.ThousandsSeparator),
	}
}

// Keys lists the keys accepted by Set, in display order.
var Keys = []string{
	"api_key", "model", "base_url",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"max_rows_for_analysis", "sample_seed", "data_temperature", "preview_rows",
	"delimiter", "decimal_separator", "thousands_separator",
	"listen_addr", "session_secret", "session_max_age_sec", "session_idle_minutes", "session_secure_cookie", "max_upload_mb",
	"log_format",
}

// Set assigns one key from its string form and validates the result.
func (c *Global) Set(key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "model":
		c.Model = val
	case "base_url":
		c.BaseURL = strings.TrimRight(val, "/")
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "max_rows_for_analysis":
		c.MaxRowsForAnalysis, err = atoi()
	case "sample_seed":
		c.SampleSeed, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid int for sample_seed: %v", val)
		}
	case "data_temperature":
		c.DataTemperature, err = strconv.ParseFloat(val, 64)
		if err != nil {
			err = fmt.Errorf("invalid float for data_temperature: %w", err)
		}
	case "preview_rows":
		c.PreviewRows, err = atoi()
	case "delimiter":
		c.Delimiter = unescapeTab(val)
	case "decimal_separator":
		c.DecimalSeparator = val
	case "thousands_separator":
		c.ThousandsSeparator = val
	case "listen_addr":
		c.ListenAddr = val
	case "session_secret":
		c.SessionSecret = val
	case "session_max_age_sec":
		c.SessionMaxAgeSec, err = atoi()
	case "session_idle_minutes":
		c.SessionIdleMinutes, err = atoi()
	case "session_secure_cookie":
		c.SessionSecureCookie, err = strconv.ParseBool(val)
		if err != nil {
			err = fmt.Errorf("invalid bool for session_secure_cookie: %v", val)
		}
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi()
	case "log_format":
		c.LogFormat = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	return c.Validate()
}

// unescapeTab lets `config set delimiter '\t'` mean a tab.
func unescapeTab(s string) string {
	if s == `\t` {
		return "\t"
	}
	return s
}
