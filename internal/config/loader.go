package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/GroupWarden/internal/domain/report"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "groupwarden.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "GROUPWARDEN_PORT")
	setString(&cfg.Server.CORSOrigin, "GROUPWARDEN_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "GROUPWARDEN_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "GROUPWARDEN_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "GROUPWARDEN_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "GROUPWARDEN_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "GROUPWARDEN_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "GROUPWARDEN_LOG_LEVEL")
	setString(&cfg.Logging.Service, "GROUPWARDEN_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "GROUPWARDEN_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "GROUPWARDEN_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxEntries, "GROUPWARDEN_CACHE_MAX_ENTRIES")
	setDuration(&cfg.Cache.ContactTTL, "GROUPWARDEN_CACHE_CONTACT_TTL")
	setString(&cfg.Auth.APIKeyHash, "GROUPWARDEN_API_KEY_HASH")

	setString(&cfg.Moderation.GroupID, "GROUPWARDEN_GROUP_ID")
	setString(&cfg.Moderation.GroupName, "GROUPWARDEN_GROUP_NAME")
	setInt(&cfg.Moderation.MinMessageLen, "GROUPWARDEN_MIN_MESSAGE_LEN")
	setDuration(&cfg.Moderation.ReviewRetention, "GROUPWARDEN_REVIEW_RETENTION")
	setDuration(&cfg.Moderation.SweepInterval, "GROUPWARDEN_SWEEP_INTERVAL")
	setString(&cfg.Moderation.ReportTime, "GROUPWARDEN_REPORT_TIME")
	setStringSlice(&cfg.Moderation.MediaKeywords, "GROUPWARDEN_MEDIA_KEYWORDS")
	setInt(&cfg.Moderation.NotifyTruncateAt, "GROUPWARDEN_NOTIFY_TRUNCATE_AT")

	setString(&cfg.Decision.Interpreter, "GROUPWARDEN_DECISION_INTERPRETER")
	setString(&cfg.Decision.ClassifyScript, "GROUPWARDEN_DECISION_CLASSIFY")
	setString(&cfg.Decision.FeedbackScript, "GROUPWARDEN_DECISION_FEEDBACK")
	setString(&cfg.Decision.StatsScript, "GROUPWARDEN_DECISION_STATS")
	setString(&cfg.Decision.WorkDir, "GROUPWARDEN_DECISION_WORKDIR")
	setDuration(&cfg.Decision.Timeout, "GROUPWARDEN_DECISION_TIMEOUT")
	setInt64(&cfg.Decision.MaxConcurrent, "GROUPWARDEN_DECISION_MAX_CONCURRENT")

	setString(&cfg.Telemetry.OTLPEndpoint, "GROUPWARDEN_OTLP_ENDPOINT")
	setDuration(&cfg.Telemetry.Interval, "GROUPWARDEN_OTLP_INTERVAL")
}

// validate rejects configurations that cannot possibly run.
func validate(cfg *Config) error {
	if cfg.Moderation.GroupID == "" && cfg.Moderation.GroupName == "" {
		return errors.New("moderation: group_id or group_name is required")
	}
	if cfg.Moderation.MinMessageLen < 0 {
		return errors.New("moderation: min_message_len must be >= 0")
	}
	if cfg.Moderation.ReviewRetention <= 0 {
		return errors.New("moderation: review_retention must be positive")
	}
	if cfg.Moderation.SweepInterval <= 0 {
		return errors.New("moderation: sweep_interval must be positive")
	}
	if _, err := report.ParseSchedule(cfg.Moderation.ReportTime); err != nil {
		return fmt.Errorf("moderation: report_time: %w", err)
	}
	if cfg.Decision.Timeout <= 0 {
		return errors.New("decision: timeout must be positive")
	}
	if cfg.Decision.MaxConcurrent < 1 {
		return errors.New("decision: max_concurrent must be >= 1")
	}
	if cfg.Decision.ClassifyScript == "" {
		return errors.New("decision: classify_script is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
