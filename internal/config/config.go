package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Campaign   CampaignConfig   `yaml:"campaign"`
	Agent      AgentConfig      `yaml:"agent"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// Bcrypt hash of the /trigger bearer token, generated with `leadline token`.
	// Empty disables the manual trigger endpoint.
	TriggerTokenHash string `yaml:"trigger_token_hash"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type TwilioConfig struct {
	AccountSID        string `yaml:"account_sid"`
	AuthToken         string `yaml:"auth_token"`
	From              string `yaml:"from"`     // sending number, E.164
	BaseURL           string `yaml:"base_url"` // override for tests
	ValidateSignature bool   `yaml:"validate_signature"`
}

type ClassifierConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type CampaignConfig struct {
	BatchSize          int    `yaml:"batch_size"`
	SendTime           string `yaml:"send_time"` // daily trigger, "15:04" wall clock
	Timezone           string `yaml:"timezone"`
	SendHourStart      int    `yaml:"send_hour_start"` // scheduled runs skipped outside this window
	SendHourEnd        int    `yaml:"send_hour_end"`
	FollowUpDays       int    `yaml:"follow_up_days"`
	ThrottleMinSeconds int    `yaml:"throttle_min_seconds"` // human-like delay between sends
	ThrottleMaxSeconds int    `yaml:"throttle_max_seconds"`
	RateLimitRetries   int    `yaml:"rate_limit_retries"` // bounded retries on gateway rate-limiting
}

type AgentConfig struct {
	Name      string `yaml:"name"`
	Team      string `yaml:"team"`
	Brokerage string `yaml:"brokerage"`
}

type RateLimitConfig struct {
	Path            string `yaml:"path"` // bbolt counter database
	MessagesPerHour int    `yaml:"messages_per_hour"`
	MessagesPerDay  int    `yaml:"messages_per_day"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides secrets from the environment so credentials can stay out
// of the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_PHONE"); v != "" {
		cfg.Twilio.From = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Classifier.APIKey = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/leadline/leadline.db"
	}
	if cfg.RateLimit.Path == "" {
		cfg.RateLimit.Path = "/var/lib/leadline/ratelimit.db"
	}
	if cfg.RateLimit.MessagesPerDay == 0 {
		cfg.RateLimit.MessagesPerDay = 50
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "claude-3-5-haiku-latest"
	}
	if cfg.Campaign.BatchSize == 0 {
		cfg.Campaign.BatchSize = 50
	}
	if cfg.Campaign.SendTime == "" {
		cfg.Campaign.SendTime = "10:00"
	}
	if cfg.Campaign.Timezone == "" {
		cfg.Campaign.Timezone = "America/Toronto"
	}
	if cfg.Campaign.SendHourStart == 0 && cfg.Campaign.SendHourEnd == 0 {
		cfg.Campaign.SendHourStart = 9
		cfg.Campaign.SendHourEnd = 20
	}
	if cfg.Campaign.FollowUpDays == 0 {
		cfg.Campaign.FollowUpDays = 3
	}
	if cfg.Campaign.ThrottleMinSeconds == 0 && cfg.Campaign.ThrottleMaxSeconds == 0 {
		cfg.Campaign.ThrottleMinSeconds = 45
		cfg.Campaign.ThrottleMaxSeconds = 90
	}
	if cfg.Campaign.RateLimitRetries == 0 {
		cfg.Campaign.RateLimitRetries = 2
	}
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "Sarah"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Twilio.AccountSID == "" {
		return fmt.Errorf("twilio.account_sid is required (or TWILIO_ACCOUNT_SID)")
	}
	if cfg.Twilio.AuthToken == "" {
		return fmt.Errorf("twilio.auth_token is required (or TWILIO_AUTH_TOKEN)")
	}
	if cfg.Twilio.From == "" {
		return fmt.Errorf("twilio.from is required (or TWILIO_PHONE)")
	}
	if cfg.Classifier.APIKey == "" {
		return fmt.Errorf("classifier.api_key is required (or ANTHROPIC_API_KEY)")
	}
	if cfg.Campaign.BatchSize < 1 {
		return fmt.Errorf("campaign.batch_size must be positive")
	}
	if _, err := time.Parse("15:04", cfg.Campaign.SendTime); err != nil {
		return fmt.Errorf("campaign.send_time must be HH:MM: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Campaign.Timezone); err != nil {
		return fmt.Errorf("campaign.timezone is invalid: %w", err)
	}
	if cfg.Campaign.SendHourStart < 0 || cfg.Campaign.SendHourEnd > 24 ||
		cfg.Campaign.SendHourStart >= cfg.Campaign.SendHourEnd {
		return fmt.Errorf("campaign send hour window is invalid: %d-%d",
			cfg.Campaign.SendHourStart, cfg.Campaign.SendHourEnd)
	}
	if cfg.Campaign.ThrottleMinSeconds > cfg.Campaign.ThrottleMaxSeconds {
		return fmt.Errorf("campaign.throttle_min_seconds must not exceed throttle_max_seconds")
	}
	return nil
}

// WithinSendHours reports whether t falls inside the configured send window.
// The end hour is exclusive.
func (c *CampaignConfig) WithinSendHours(t time.Time) bool {
	return t.Hour() >= c.SendHourStart && t.Hour() < c.SendHourEnd
}

// Location returns the campaign timezone. Config is validated at load time,
// so the lookup cannot fail here.
func (c *CampaignConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
