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
	Timezone  string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Credential CredentialConfig
	Shifts     ShiftsConfig
	Jobs       JobsConfig
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CredentialConfig governs the boarding-credential token codec.
type CredentialConfig struct {
	Secret string
	Prefix string
}

// ShiftWindowConfig holds the two clock-time cutoffs of one shift as "HH:MM".
type ShiftWindowConfig struct {
	BoardingDeadline   string
	ReturnEligibleFrom string
}

// ShiftsConfig holds the scan windows for both shifts.
type ShiftsConfig struct {
	Morning   ShiftWindowConfig
	Afternoon ShiftWindowConfig
}

// JobsConfig wires the scheduled background jobs and their notification sink.
type JobsConfig struct {
	Enabled             bool
	AbsenceSweepSpec    string
	ForecastBuildSpec   string
	ReconciliationSpec  string
	NotificationChannel string
	RunTimeout          time.Duration
}

// ExportsConfig gates the route manifest export endpoint.
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
	cfg.Timezone = v.GetString("TIMEZONE")

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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Credential = CredentialConfig{
		Secret: v.GetString("CREDENTIAL_SECRET"),
		Prefix: v.GetString("CREDENTIAL_PREFIX"),
	}

	cfg.Shifts = ShiftsConfig{
		Morning: ShiftWindowConfig{
			BoardingDeadline:   v.GetString("MORNING_BOARDING_DEADLINE"),
			ReturnEligibleFrom: v.GetString("MORNING_RETURN_FROM"),
		},
		Afternoon: ShiftWindowConfig{
			BoardingDeadline:   v.GetString("AFTERNOON_BOARDING_DEADLINE"),
			ReturnEligibleFrom: v.GetString("AFTERNOON_RETURN_FROM"),
		},
	}

	cfg.Jobs = JobsConfig{
		Enabled:             v.GetBool("ENABLE_JOBS"),
		AbsenceSweepSpec:    v.GetString("ABSENCE_SWEEP_SPEC"),
		ForecastBuildSpec:   v.GetString("FORECAST_BUILD_SPEC"),
		ReconciliationSpec:  v.GetString("RECONCILIATION_SPEC"),
		NotificationChannel: v.GetString("JOB_NOTIFICATION_CHANNEL"),
		RunTimeout:          parseDuration(v.GetString("JOB_RUN_TIMEOUT"), 5*time.Minute),
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
	v.SetDefault("TIMEZONE", "Asia/Jakarta")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_transit")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "campus-transit-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CREDENTIAL_SECRET", "dev_credential_secret")
	v.SetDefault("CREDENTIAL_PREFIX", "CTP")

	v.SetDefault("MORNING_BOARDING_DEADLINE", "07:30")
	v.SetDefault("MORNING_RETURN_FROM", "15:00")
	v.SetDefault("AFTERNOON_BOARDING_DEADLINE", "12:30")
	v.SetDefault("AFTERNOON_RETURN_FROM", "20:00")

	v.SetDefault("ENABLE_JOBS", true)
	v.SetDefault("ABSENCE_SWEEP_SPEC", "59 23 * * *")
	v.SetDefault("FORECAST_BUILD_SPEC", "0 22 * * *")
	v.SetDefault("RECONCILIATION_SPEC", "30 23 * * *")
	v.SetDefault("JOB_NOTIFICATION_CHANNEL", "transit:job-events")
	v.SetDefault("JOB_RUN_TIMEOUT", "5m")

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
