package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	Identity   IdentityConfig
	CORS       CORSConfig
	Log        LogConfig
	Audit      AuditConfig
	Escalation EscalationConfig
	Dashboard  DashboardConfig
	Exports    ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// IdentityConfig governs caller identity resolution at the boundary.
// DemoHeaders enables the trust-the-caller X-Role/X-User-ID/X-Department-ID
// mechanism; it is not an authentication system and must stay off in
// production deployments exposed to untrusted callers.
type IdentityConfig struct {
	JWTSecret   string
	DemoHeaders bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuditConfig tunes propagation of ledger entries to the durable sink.
type AuditConfig struct {
	SinkStream        string
	SinkMaxLen        int64
	WorkerConcurrency int
	WorkerRetries     int
	RetryDelay        time.Duration
}

// EscalationConfig controls the background breach sweeper.
type EscalationConfig struct {
	SweepEnabled  bool
	SweepInterval time.Duration
	SweeperUserID string
	TargetPoolID  string
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// ExportsConfig gates the claim register export endpoints.
type ExportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Identity = IdentityConfig{
		JWTSecret:   v.GetString("JWT_SECRET"),
		DemoHeaders: v.GetBool("DEMO_IDENTITY_HEADERS"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Audit = AuditConfig{
		SinkStream:        v.GetString("AUDIT_SINK_STREAM"),
		SinkMaxLen:        v.GetInt64("AUDIT_SINK_MAXLEN"),
		WorkerConcurrency: v.GetInt("AUDIT_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("AUDIT_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("AUDIT_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Escalation = EscalationConfig{
		SweepEnabled:  v.GetBool("ENABLE_ESCALATION_SWEEP"),
		SweepInterval: parseDuration(v.GetString("ESCALATION_SWEEP_INTERVAL"), 15*time.Minute),
		SweeperUserID: v.GetString("ESCALATION_SWEEPER_USER_ID"),
		TargetPoolID:  v.GetString("ESCALATION_TARGET_POOL_ID"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "claimflow")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("DEMO_IDENTITY_HEADERS", true)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AUDIT_SINK_STREAM", "audit:entries")
	v.SetDefault("AUDIT_SINK_MAXLEN", 100000)
	v.SetDefault("AUDIT_WORKER_CONCURRENCY", 1)
	v.SetDefault("AUDIT_WORKER_RETRIES", 3)
	v.SetDefault("AUDIT_RETRY_DELAY", "2s")

	v.SetDefault("ENABLE_ESCALATION_SWEEP", false)
	v.SetDefault("ESCALATION_SWEEP_INTERVAL", "15m")
	v.SetDefault("ESCALATION_SWEEPER_USER_ID", "system-sweeper")
	v.SetDefault("ESCALATION_TARGET_POOL_ID", "escalation-authority-pool")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_EXPORTS", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
