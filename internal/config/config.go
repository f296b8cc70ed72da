// Package config provides YAML-based configuration loading for the comms service.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration, loaded from config.yaml.
type Config struct {
	DB            DBConfig           `yaml:"db"`
	HTTP          HTTPConfig         `yaml:"http"`
	Sweep         SweepConfig        `yaml:"sweep"`
	Ops           OpsConfig          `yaml:"ops"`
	ProposalTypes []ProposalTypeSeed `yaml:"proposal_types"`
}

// DBConfig holds connection settings for the MySQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// HTTPConfig holds settings for the gateway HTTP/WebSocket server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// SweepConfig controls the proposal expiry sweep and the activity digest.
type SweepConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	DigestSchedule  string `yaml:"digest_schedule"` // 5-field cron expression; empty disables the digest
}

// OpsConfig holds settings for operator notifications (Slack).
type OpsConfig struct {
	SlackToken   string `yaml:"slack_token"`
	SlackChannel string `yaml:"slack_channel"`
}

// ProposalTypeSeed defines a proposal type to upsert at migration time.
type ProposalTypeSeed struct {
	Type                  string `yaml:"type"`
	RequiredRole          string `yaml:"required_role"`
	CreationActionType    string `yaml:"creation_action_type"`
	ResponseActionType    string `yaml:"response_action_type"`
	Description           string `yaml:"description"`
	DefaultTimeoutMinutes int    `yaml:"default_timeout_minutes"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" {
		c.DB.Database = "comms"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Sweep.IntervalSeconds == 0 {
		c.Sweep.IntervalSeconds = 60
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Sweep.IntervalSeconds < 0 {
		errs = append(errs, "sweep.interval_seconds must not be negative")
	}
	if c.Ops.SlackToken != "" && c.Ops.SlackChannel == "" {
		errs = append(errs, "ops.slack_channel is required when ops.slack_token is set")
	}
	seen := make(map[string]bool)
	for i, pt := range c.ProposalTypes {
		if pt.Type == "" {
			errs = append(errs, fmt.Sprintf("proposal_types[%d].type is required", i))
			continue
		}
		if seen[pt.Type] {
			errs = append(errs, fmt.Sprintf("proposal_types[%d]: duplicate type %q", i, pt.Type))
		}
		seen[pt.Type] = true
		if pt.ResponseActionType == "" {
			errs = append(errs, fmt.Sprintf("proposal_types[%d].response_action_type is required", i))
		}
		if pt.DefaultTimeoutMinutes < 0 {
			errs = append(errs, fmt.Sprintf("proposal_types[%d].default_timeout_minutes must not be negative", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
