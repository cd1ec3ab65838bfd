// ABOUTME: Configuration loading and parsing for coven-workspace
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Signup modes select how a successful signup transitions the session.
const (
	SignupModeVerify    = "verify"    // signup awaits a one-time code
	SignupModeImmediate = "immediate" // signup authenticates directly
)

// Defaults applied when a value is absent from the file.
const (
	DefaultBaseURL   = "http://localhost:8000"
	DefaultTimeout   = 30 * time.Second
	DefaultOTPLength = 4
	DefaultHTTPAddr  = "localhost:8000"
	DefaultTokenTTL  = 24 * time.Hour
	DefaultOTPTTL    = 10 * time.Minute
)

// Config represents the complete coven-workspace configuration
type Config struct {
	Remote    RemoteConfig    `yaml:"remote" toml:"remote"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	DevServer DevServerConfig `yaml:"devserver" toml:"devserver"`
}

// RemoteConfig holds the backing service address and request timeout
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	// Raw string value for YAML/TOML unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// AuthConfig holds client-side authentication behaviour
type AuthConfig struct {
	SignupMode string `yaml:"signup_mode" toml:"signup_mode"`
	OTPLength  int    `yaml:"otp_length" toml:"otp_length"`
}

// StorageConfig holds the durable session storage location
type StorageConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DevServerConfig holds settings for the development stand-in service
type DevServerConfig struct {
	HTTPAddr   string        `yaml:"http_addr" toml:"http_addr"`
	JWTSecret  string        `yaml:"jwt_secret" toml:"jwt_secret"`
	SignupMode string        `yaml:"signup_mode" toml:"signup_mode"`
	TokenTTL   time.Duration `yaml:"-" toml:"-"`
	OTPTTL     time.Duration `yaml:"-" toml:"-"`

	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
	OTPTTLRaw   string `yaml:"otp_ttl" toml:"otp_ttl"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads the file at path, or returns Default() when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in zero values.
func applyDefaults(cfg *Config) {
	if cfg.Remote.BaseURL == "" {
		cfg.Remote.BaseURL = DefaultBaseURL
	}
	cfg.Remote.BaseURL = strings.TrimRight(cfg.Remote.BaseURL, "/")
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = DefaultTimeout
	}
	if cfg.Auth.SignupMode == "" {
		cfg.Auth.SignupMode = SignupModeVerify
	}
	if cfg.Auth.OTPLength == 0 {
		cfg.Auth.OTPLength = DefaultOTPLength
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(DataDir(), "session.db")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.DevServer.HTTPAddr == "" {
		cfg.DevServer.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.DevServer.SignupMode == "" {
		cfg.DevServer.SignupMode = cfg.Auth.SignupMode
	}
	if cfg.DevServer.TokenTTL == 0 {
		cfg.DevServer.TokenTTL = DefaultTokenTTL
	}
	if cfg.DevServer.OTPTTL == 0 {
		cfg.DevServer.OTPTTL = DefaultOTPTTL
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Remote.BaseURL, "http://") && !strings.HasPrefix(c.Remote.BaseURL, "https://") {
		return fmt.Errorf("remote.base_url must be an http(s) URL, got %q", c.Remote.BaseURL)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative")
	}

	if err := validateSignupMode("auth.signup_mode", c.Auth.SignupMode); err != nil {
		return err
	}
	if err := validateSignupMode("devserver.signup_mode", c.DevServer.SignupMode); err != nil {
		return err
	}

	if c.Auth.OTPLength < 1 || c.Auth.OTPLength > 12 {
		return fmt.Errorf("auth.otp_length must be between 1 and 12, got %d", c.Auth.OTPLength)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// ValidateDevServer checks the fields only the development service needs.
func (c *Config) ValidateDevServer() error {
	if len(c.DevServer.JWTSecret) < 32 {
		return fmt.Errorf("devserver.jwt_secret must be at least 32 bytes")
	}
	return nil
}

func validateSignupMode(field, mode string) error {
	switch mode {
	case SignupModeVerify, SignupModeImmediate:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", field, SignupModeVerify, SignupModeImmediate, mode)
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Remote.TimeoutRaw != "" {
		cfg.Remote.Timeout, err = time.ParseDuration(cfg.Remote.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Remote.TimeoutRaw, err)
		}
	}

	if cfg.DevServer.TokenTTLRaw != "" {
		cfg.DevServer.TokenTTL, err = time.ParseDuration(cfg.DevServer.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.DevServer.TokenTTLRaw, err)
		}
	}

	if cfg.DevServer.OTPTTLRaw != "" {
		cfg.DevServer.OTPTTL, err = time.ParseDuration(cfg.DevServer.OTPTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing otp_ttl %q: %w", cfg.DevServer.OTPTTLRaw, err)
		}
	}

	return nil
}

// Path returns the path to the workspace config file.
// Priority: COVEN_WORKSPACE_CONFIG env var > XDG_CONFIG_HOME/coven/workspace.yaml > ~/.config/coven/workspace.yaml
func Path() string {
	if envPath := os.Getenv("COVEN_WORKSPACE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "workspace.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "workspace.yaml")
}

// DataDir returns the directory holding durable client state.
// Priority: XDG_DATA_HOME/coven-workspace > ~/.local/share/coven-workspace
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "coven-workspace")
}
