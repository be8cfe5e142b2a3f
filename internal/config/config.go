// Package config provides configuration loading and management for ryver-relay.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Relay    RelayConfig    `yaml:"relay"`
	Notifier NotifierConfig `yaml:"notifier"`
	Ryver    RyverConfig    `yaml:"ryver"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig holds connection settings for the match queue database.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// Table is the queue table the rules engine writes matches into.
	Table string `yaml:"table"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ScheduleConfig defines when dispatch runs happen.
type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`

	// Location is resolved from Timezone by Validate.
	Location *time.Location `yaml:"-"`
}

// RelayConfig defines batch collection parameters.
type RelayConfig struct {
	BatchLimit      int    `yaml:"batch_limit"`
	DispatchTimeout string `yaml:"dispatch_timeout"`
}

// DispatchTimeoutParsed returns the parsed dispatch timeout.
func (r *RelayConfig) DispatchTimeoutParsed() (time.Duration, error) {
	return time.ParseDuration(r.DispatchTimeout)
}

// NotifierConfig selects the notification channel.
type NotifierConfig struct {
	Type string `yaml:"type"`
}

// RyverConfig holds the Ryver destination settings.
//
// AuthBasic is the pre-encoded base64 user:password string; it is sent
// verbatim in the Authorization header, never re-encoded. Exactly one of
// ForumID, TeamID, TopicID must be set; the notifier constructor enforces
// this. DisplayName and Avatar override the sender identity of posted
// messages for forum and team destinations only.
type RyverConfig struct {
	AuthBasic    string `yaml:"auth_basic"`
	Organization string `yaml:"organization"`
	ForumID      string `yaml:"forum_id"`
	TeamID       string `yaml:"team_id"`
	TopicID      string `yaml:"topic_id"`
	DisplayName  string `yaml:"display_name"`
	Avatar       string `yaml:"avatar"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int  `yaml:"port"`
	DeepCheck bool `yaml:"deep_check"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars expands ${VAR} and ${VAR:-default} patterns in the input string.
func expandEnvVars(input string) string {
	// Pattern: ${VAR:-default} or ${VAR}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) > 2 {
			defaultVal = parts[2]
		}

		if val, exists := os.LookupEnv(varName); exists {
			return val
		}
		return defaultVal
	})
}

// applyDefaults sets default values for any unset configuration fields.
func applyDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Host == "" {
		cfg.Database.Host = "127.0.0.1"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "relay_readonly"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "alerts"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "alert_matches"
	}

	// Schedule defaults (6-field cron with seconds)
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 */5 * * * *" // Every 5 minutes
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}

	// Relay defaults
	if cfg.Relay.BatchLimit == 0 {
		cfg.Relay.BatchLimit = 100
	}
	if cfg.Relay.DispatchTimeout == "" {
		cfg.Relay.DispatchTimeout = "1m"
	}

	// Notifier defaults
	if cfg.Notifier.Type == "" {
		cfg.Notifier.Type = "console"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// Validate checks that the configuration is valid.
//
// Destination mutual exclusivity (forum_id/team_id/topic_id) is deliberately
// left to the Ryver notifier constructor, which owns that contract.
func (c *Config) Validate() error {
	var errs []string

	// Validate database
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}

	// Validate notifier type
	validNotifierTypes := map[string]bool{"ryver": true, "console": true}
	if !validNotifierTypes[c.Notifier.Type] {
		errs = append(errs, "notifier.type must be one of: ryver, console")
	}

	// Validate Ryver credentials
	if c.Notifier.Type == "ryver" {
		if c.Ryver.AuthBasic == "" {
			errs = append(errs, "ryver.auth_basic is required when notifier.type is 'ryver'")
		}
		if c.Ryver.Organization == "" {
			errs = append(errs, "ryver.organization is required when notifier.type is 'ryver'")
		}
	}

	// Validate durations
	if _, err := c.Relay.DispatchTimeoutParsed(); err != nil {
		errs = append(errs, fmt.Sprintf("relay.dispatch_timeout is invalid: %v", err))
	}

	// Validate batch limit
	if c.Relay.BatchLimit < 1 {
		errs = append(errs, "relay.batch_limit must be at least 1")
	}

	// Validate timezone
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("schedule.timezone is invalid: %v", err))
	} else {
		c.Schedule.Location = loc
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
