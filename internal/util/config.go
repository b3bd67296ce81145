// Package util provides common utilities for portalwatch.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/user/portalwatch/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Probe settings
	ProbeURL          string `mapstructure:"probe_url"`
	ProbeExpectedBody string `mapstructure:"probe_expected_body"`
	ProbeUserAgent    string `mapstructure:"probe_user_agent"`
	// BindInterface pins probes to the active interface. Needs CAP_NET_RAW
	// on Linux.
	BindInterface bool `mapstructure:"bind_interface"`

	// Network-state polling
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Detection
	EnableOnStart bool              `mapstructure:"enable_on_start"`
	Strategy      strategy.Policies `mapstructure:"strategy"`
	ZeroDelay     bool              `mapstructure:"zero_delay"`

	// Web server
	WebPort int `mapstructure:"web_port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".portalwatch")

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		LogFile:  filepath.Join(dataDir, "portalwatch.log"),

		ProbeURL:       "http://connectivitycheck.gstatic.com/generate_204",
		ProbeUserAgent: "portalwatch/1.0",

		PollInterval: 2 * time.Second,

		EnableOnStart: true,
		Strategy:      strategy.DefaultPolicies(),

		WebPort: 8090,
	}
}

// Validate checks values viper cannot check for us.
func (c *Config) Validate() error {
	if c.ProbeURL == "" {
		return fmt.Errorf("probe_url must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from file and environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper(), "")
}

// LoadConfigFrom loads configuration through v. A non-empty cfgFile is read
// instead of searching the data dir and the working directory.
func LoadConfigFrom(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure config directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(cfg.DataDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PORTALWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults in viper
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("probe_url", cfg.ProbeURL)
	v.SetDefault("probe_expected_body", cfg.ProbeExpectedBody)
	v.SetDefault("probe_user_agent", cfg.ProbeUserAgent)
	v.SetDefault("bind_interface", cfg.BindInterface)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("enable_on_start", cfg.EnableOnStart)
	v.SetDefault("zero_delay", cfg.ZeroDelay)
	v.SetDefault("web_port", cfg.WebPort)
	setPolicyDefaults(v, "strategy.login_screen", cfg.Strategy.LoginScreen)
	setPolicyDefaults(v, "strategy.session", cfg.Strategy.Session)
	setPolicyDefaults(v, "strategy.error_screen", cfg.Strategy.ErrorScreenVisible)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setPolicyDefaults(v *viper.Viper, prefix string, p strategy.Policy) {
	v.SetDefault(prefix+".initial_delay", p.InitialDelay)
	v.SetDefault(prefix+".growth_factor", p.GrowthFactor)
	v.SetDefault(prefix+".max_delay", p.MaxDelay)
	v.SetDefault(prefix+".max_attempts", p.MaxAttempts)
	v.SetDefault(prefix+".fallback_delay", p.FallbackDelay)
	v.SetDefault(prefix+".attempt_timeout", p.AttemptTimeout)
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
