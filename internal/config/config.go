package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"annuaire/internal/constants"
	"annuaire/internal/logger"
)

// AuthConfig holds user-configurable account settings.
type AuthConfig struct {
	BcryptCost        int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	MinPasswordLength int `yaml:"min_password_length" env:"MIN_PASSWORD_LENGTH"`
}

// AuditConfig holds user-configurable audit trail settings.
type AuditConfig struct {
	MaxRows int `yaml:"max_rows" env:"MAX_ROWS"`
}

// Config holds all application configuration.
type Config struct {
	DataDir  string      `yaml:"data_dir" env:"DATA_DIR"`
	LogLevel string      `yaml:"log_level" env:"LOG_LEVEL"`
	Auth     AuthConfig  `yaml:"auth" envPrefix:"AUTH_"`
	Audit    AuditConfig `yaml:"audit" envPrefix:"AUDIT_"`
}

// ApplyDefaults fills zero-valued fields with constant defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.DataDir == "" {
		cfg.DataDir = constants.DefaultDataDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = constants.DefaultLogLevel
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = constants.AuthBcryptCost
	}
	if cfg.Auth.MinPasswordLength == 0 {
		cfg.Auth.MinPasswordLength = constants.AuthMinPasswordLength
	}
	if cfg.Audit.MaxRows == 0 {
		cfg.Audit.MaxRows = constants.AuditMaxRows
	}
}

// validate checks that all configurable values are within acceptable ranges.
func (cfg *Config) validate() error {
	var errs []string

	switch cfg.LogLevel {
	case logger.LevelDebug, logger.LevelInfo, logger.LevelWarn, logger.LevelError:
	default:
		errs = append(errs, "log_level must be one of DEBUG, INFO, WARN, ERROR")
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		errs = append(errs, "auth.bcrypt_cost must be between 4 and 31")
	}
	if cfg.Auth.MinPasswordLength < 1 {
		errs = append(errs, "auth.min_password_length must be >= 1")
	}
	if cfg.Auth.MinPasswordLength > constants.AuthMaxPasswordLength {
		errs = append(errs, fmt.Sprintf("auth.min_password_length must be <= %d", constants.AuthMaxPasswordLength))
	}

	if cfg.Audit.MaxRows < 100 {
		errs = append(errs, "audit.max_rows must be >= 100")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogEffectiveValues logs all effective configuration values at startup.
func (cfg *Config) LogEffectiveValues(log *logger.Logger) {
	log.Info("config: data_dir=%s", cfg.DataDir)
	log.Info("config: log_level=%s", cfg.LogLevel)
	log.Info("config: auth.bcrypt_cost=%d", cfg.Auth.BcryptCost)
	log.Info("config: auth.min_password_length=%d", cfg.Auth.MinPasswordLength)
	log.Info("config: audit.max_rows=%d", cfg.Audit.MaxRows)
}

func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, constants.ConfigDir)
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), constants.ConfigFile)
}

func EnsureConfigDir() error {
	return os.MkdirAll(GetConfigDir(), constants.DirPermissions)
}

// LoadConfig reads the YAML config file (creating one with defaults on first
// run), applies ANNUAIRE_-prefixed environment overrides, then validates.
func LoadConfig() (*Config, error) {
	if err := EnsureConfigDir(); err != nil {
		return nil, err
	}
	return LoadConfigFromPath(GetConfigPath())
}

// LoadConfigFromPath loads config from an explicit file path.
func LoadConfigFromPath(configPath string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// First run: persist a config with defaults
		cfg.ApplyDefaults()
		if err := SaveConfig(cfg, configPath); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	// Environment variables override file values
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "ANNUAIRE_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), constants.DirPermissions); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, constants.FilePermissions)
}

// InitializeDataDir creates the data directory layout if missing.
func InitializeDataDir(path string) error {
	if err := os.MkdirAll(path, constants.DirPermissions); err != nil {
		return err
	}
	internalDir := filepath.Join(path, constants.InternalDir)
	return os.MkdirAll(internalDir, constants.DirPermissions)
}
