package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// DefaultSchedule runs the synchronizer every day at 02:00 UTC
const DefaultSchedule = "FREQ=DAILY;BYHOUR=2;BYMINUTE=0;BYSECOND=0"

// SyncConfig configures the fleet status synchronizer
type SyncConfig struct {
	// Schedule is an RFC 5545 recurrence rule evaluated in UTC
	Schedule           string `yaml:"schedule,omitempty"`
	LicenseWarningDays int    `yaml:"licenseWarningDays,omitempty" validate:"omitempty,min=1,max=365"`
	SkipOrderSweep     bool   `yaml:"skipOrderSweep,omitempty"`
	MetricsAddr        string `yaml:"metricsAddr,omitempty" validate:"omitempty,hostname_port"`
	NotifyEmail        string `yaml:"notifyEmail,omitempty" validate:"omitempty,email"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL     string     `yaml:"databaseURL" validate:"required,url"`
	CalendarSheetID string     `yaml:"calendarSheetID,omitempty"`
	GmailSender     string     `yaml:"gmailSender,omitempty" validate:"omitempty,email"`
	Sync            SyncConfig `yaml:"sync"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from fleet_ops_config.yaml
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration with an environment suffix.
// For example, env="test" will look for "fleet_ops_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Sync.Schedule == "" {
		cfg.Sync.Schedule = DefaultSchedule
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Sync.Schedule != "" {
		if _, err := rrule.StrToRRule(cfg.Sync.Schedule); err != nil {
			return fmt.Errorf("invalid rrule in sync.schedule: %w", err)
		}
	}

	return nil
}

// findConfigFile searches for the config file in the current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := "fleet_ops_config.yaml"
	if env != "" {
		configFileName = "fleet_ops_config." + env + ".yaml"
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
