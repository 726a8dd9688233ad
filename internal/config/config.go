// Package config provides hierarchical configuration loading for GroupWarden.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the GroupWarden service.
type Config struct {
	Server     Server     `yaml:"server"`
	Postgres   Postgres   `yaml:"postgres"`
	NATS       NATS       `yaml:"nats"`
	Logging    Logging    `yaml:"logging"`
	Breaker    Breaker    `yaml:"breaker"`
	Cache      Cache      `yaml:"cache"`
	Auth       Auth       `yaml:"auth"`
	Moderation Moderation `yaml:"moderation"`
	Decision   Decision   `yaml:"decision"`
	Telemetry  Telemetry  `yaml:"telemetry"`
}

// Server holds admin HTTP API configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Postgres holds the optional moderation audit store configuration.
// An empty DSN disables the audit store entirely.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds the connection to the WhatsApp bridge sidecar.
type NATS struct {
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Breaker holds the circuit breaker guarding classifier spawns.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds the in-process contact-name cache configuration.
type Cache struct {
	MaxEntries int64         `yaml:"max_entries"`
	ContactTTL time.Duration `yaml:"contact_ttl"`
}

// Auth holds admin API authentication. APIKeyHash is a bcrypt hash of the
// key; an empty hash disables auth (local development).
type Auth struct {
	APIKeyHash string `yaml:"api_key_hash"`
}

// Moderation holds the group watch and review lifecycle configuration.
type Moderation struct {
	GroupID          string        `yaml:"group_id"`
	GroupName        string        `yaml:"group_name"`
	MinMessageLen    int           `yaml:"min_message_len"`
	ReviewRetention  time.Duration `yaml:"review_retention"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	ReportTime       string        `yaml:"report_time"` // "HH:MM", local time
	MediaKeywords    []string      `yaml:"media_keywords"`
	NotifyTruncateAt int           `yaml:"notify_truncate_at"`
}

// Decision holds the external classifier subprocess configuration.
type Decision struct {
	Interpreter    string        `yaml:"interpreter"`
	ClassifyScript string        `yaml:"classify_script"`
	FeedbackScript string        `yaml:"feedback_script"`
	StatsScript    string        `yaml:"stats_script"`
	WorkDir        string        `yaml:"work_dir"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrent  int64         `yaml:"max_concurrent"`
}

// Telemetry holds OTLP metric export configuration. An empty endpoint
// keeps metrics in-process only.
type Telemetry struct {
	OTLPEndpoint string        `yaml:"otlp_endpoint"`
	Interval     time.Duration `yaml:"interval"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8090",
			CORSOrigin: "http://localhost:3000",
		},
		Postgres: Postgres{
			DSN:             "",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		Logging: Logging{
			Level:   "info",
			Service: "groupwarden",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			MaxEntries: 4096,
			ContactTTL: time.Hour,
		},
		Moderation: Moderation{
			MinMessageLen:    2,
			ReviewRetention:  24 * time.Hour,
			SweepInterval:    10 * time.Minute,
			ReportTime:       "20:00",
			MediaKeywords:    []string{"video", "photo", "picture", "live", "stream", "footage"},
			NotifyTruncateAt: 300,
		},
		Decision: Decision{
			Interpreter:    "python",
			ClassifyScript: "moderation_api.py",
			FeedbackScript: "process_feedback.py",
			StatsScript:    "get_daily_stats.py",
			WorkDir:        ".",
			Timeout:        15 * time.Second,
			MaxConcurrent:  4,
		},
		Telemetry: Telemetry{
			Interval: time.Minute,
		},
	}
}
