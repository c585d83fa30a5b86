package config

import (
	"os"
	"path/filepath"
	"testing"

	"annuaire/internal/constants"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.DataDir != constants.DefaultDataDir {
		t.Errorf("expected data_dir %q, got %q", constants.DefaultDataDir, cfg.DataDir)
	}
	if cfg.LogLevel != constants.DefaultLogLevel {
		t.Errorf("expected log_level %q, got %q", constants.DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Auth.BcryptCost != constants.AuthBcryptCost {
		t.Errorf("expected bcrypt_cost %d, got %d", constants.AuthBcryptCost, cfg.Auth.BcryptCost)
	}
	if cfg.Auth.MinPasswordLength != constants.AuthMinPasswordLength {
		t.Errorf("expected min_password_length %d, got %d", constants.AuthMinPasswordLength, cfg.Auth.MinPasswordLength)
	}
	if cfg.Audit.MaxRows != constants.AuditMaxRows {
		t.Errorf("expected audit.max_rows %d, got %d", constants.AuditMaxRows, cfg.Audit.MaxRows)
	}
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{DataDir: "/srv/annuaire", LogLevel: "DEBUG"}
	cfg.Auth.MinPasswordLength = 10
	cfg.ApplyDefaults()

	if cfg.DataDir != "/srv/annuaire" {
		t.Errorf("data_dir overwritten: %q", cfg.DataDir)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("log_level overwritten: %q", cfg.LogLevel)
	}
	if cfg.Auth.MinPasswordLength != 10 {
		t.Errorf("min_password_length overwritten: %d", cfg.Auth.MinPasswordLength)
	}
}

func TestLoadConfigFirstRunCreatesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigFromPath failed: %v", err)
	}
	if cfg.LogLevel != constants.DefaultLogLevel {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

func TestLoadConfigReadsExistingFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "data_dir: /srv/annuaire\nlog_level: WARN\nauth:\n  min_password_length: 10\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigFromPath failed: %v", err)
	}
	if cfg.DataDir != "/srv/annuaire" {
		t.Errorf("expected data_dir /srv/annuaire, got %q", cfg.DataDir)
	}
	if cfg.LogLevel != "WARN" {
		t.Errorf("expected log_level WARN, got %q", cfg.LogLevel)
	}
	if cfg.Auth.MinPasswordLength != 10 {
		t.Errorf("expected min_password_length 10, got %d", cfg.Auth.MinPasswordLength)
	}
	// Unset fields still get defaults
	if cfg.Auth.BcryptCost != constants.AuthBcryptCost {
		t.Errorf("expected default bcrypt cost, got %d", cfg.Auth.BcryptCost)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("log_level: WARN\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("ANNUAIRE_LOG_LEVEL", "ERROR")
	t.Setenv("ANNUAIRE_AUTH_MIN_PASSWORD_LENGTH", "8")

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigFromPath failed: %v", err)
	}
	if cfg.LogLevel != "ERROR" {
		t.Errorf("expected env override ERROR, got %q", cfg.LogLevel)
	}
	if cfg.Auth.MinPasswordLength != 8 {
		t.Errorf("expected env override 8, got %d", cfg.Auth.MinPasswordLength)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "VERBOSE" }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"bcrypt cost too high", func(c *Config) { c.Auth.BcryptCost = 40 }},
		{"negative password length", func(c *Config) { c.Auth.MinPasswordLength = -1 }},
		{"audit max rows too small", func(c *Config) { c.Audit.MaxRows = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			if err := cfg.validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestInitializeDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")

	if err := InitializeDataDir(dataDir); err != nil {
		t.Fatalf("InitializeDataDir failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dataDir, constants.InternalDir))
	if err != nil {
		t.Fatalf("expected .internal dir: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected .internal to be a directory")
	}
}
