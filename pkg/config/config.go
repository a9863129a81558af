package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Lock backends.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// DefaultSlots is the institution's default teaching day.
var DefaultSlots = []SlotConfig{
	{Start: "08:00", End: "09:30"},
	{Start: "09:40", End: "11:10"},
	{Start: "11:20", End: "12:50"},
	{Start: "14:00", End: "15:30"},
	{Start: "15:40", End: "17:10"},
	{Start: "17:20", End: "18:50"},
}

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Scheduling    SchedulingConfig
	Locks         LockConfig
	Cache         CacheConfig
	Notifications NotificationConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// SlotConfig is one fixed teaching slot of the daily template.
type SlotConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// SchedulingConfig holds the engine's business constants.
type SchedulingConfig struct {
	PauseMinutes              int
	MinSessionMinutes         int
	MaxSessionMinutes         int
	DailyCapMinutes           int
	GeneratorWeeklyCapMinutes int
	ReservationNotice         time.Duration
	Algorithm                 string
	Slots                     []SlotConfig
}

// LockConfig selects how check-then-commit sequences are serialised.
type LockConfig struct {
	Backend     string
	TTL         time.Duration
	WaitTimeout time.Duration
}

// CacheConfig governs the Redis read-through cache.
type CacheConfig struct {
	Enabled  bool
	RoomsTTL time.Duration
}

// NotificationConfig configures notification delivery.
type NotificationConfig struct {
	Async      bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Structured settings such as the slot template live in an optional YAML file.
	v.SetConfigFile(v.GetString("CONFIG_FILE"))
	v.SetConfigType("yaml")
	if err := v.MergeInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		MaxAge:         parseDuration(v.GetString("CORS_MAX_AGE"), 12*time.Hour),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	slots, err := loadSlots(v)
	if err != nil {
		return nil, err
	}
	cfg.Scheduling = SchedulingConfig{
		PauseMinutes:              v.GetInt("SCHEDULING_PAUSE_MINUTES"),
		MinSessionMinutes:         v.GetInt("SCHEDULING_MIN_SESSION_MINUTES"),
		MaxSessionMinutes:         v.GetInt("SCHEDULING_MAX_SESSION_MINUTES"),
		DailyCapMinutes:           v.GetInt("SCHEDULING_DAILY_CAP_MINUTES"),
		GeneratorWeeklyCapMinutes: v.GetInt("SCHEDULING_GENERATOR_WEEKLY_CAP_MINUTES"),
		ReservationNotice:         parseDuration(v.GetString("SCHEDULING_RESERVATION_NOTICE"), 2*time.Hour),
		Algorithm:                 strings.ToLower(strings.TrimSpace(v.GetString("SCHEDULING_ALGORITHM"))),
		Slots:                     slots,
	}

	cfg.Locks = LockConfig{
		Backend:     strings.ToLower(v.GetString("LOCK_BACKEND")),
		TTL:         parseDuration(v.GetString("LOCK_TTL"), 30*time.Second),
		WaitTimeout: parseDuration(v.GetString("LOCK_WAIT_TIMEOUT"), 5*time.Second),
	}

	cfg.Cache = CacheConfig{
		Enabled:  v.GetBool("ENABLE_CACHE"),
		RoomsTTL: parseDuration(v.GetString("ROOMS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Notifications = NotificationConfig{
		Async:      v.GetBool("NOTIFICATIONS_ASYNC"),
		Workers:    v.GetInt("NOTIFICATIONS_WORKERS"),
		Retries:    v.GetInt("NOTIFICATIONS_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), 2*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("CONFIG_FILE", "config.yaml")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academic_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "academic-scheduler")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("CORS_MAX_AGE", "12h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULING_PAUSE_MINUTES", 10)
	v.SetDefault("SCHEDULING_MIN_SESSION_MINUTES", 30)
	v.SetDefault("SCHEDULING_MAX_SESSION_MINUTES", 240)
	v.SetDefault("SCHEDULING_DAILY_CAP_MINUTES", 480)
	v.SetDefault("SCHEDULING_GENERATOR_WEEKLY_CAP_MINUTES", 480)
	v.SetDefault("SCHEDULING_RESERVATION_NOTICE", "2h")
	v.SetDefault("SCHEDULING_ALGORITHM", "greedy")
	v.SetDefault("SCHEDULING_SLOTS", "")

	v.SetDefault("LOCK_BACKEND", LockBackendLocal)
	v.SetDefault("LOCK_TTL", "30s")
	v.SetDefault("LOCK_WAIT_TIMEOUT", "5s")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("ROOMS_CACHE_TTL", "10m")

	v.SetDefault("NOTIFICATIONS_ASYNC", false)
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "2s")
}

// loadSlots resolves the slot template: a structured `scheduling.slots`
// list from YAML wins, then the SCHEDULING_SLOTS env string, then defaults.
func loadSlots(v *viper.Viper) ([]SlotConfig, error) {
	if raw, ok := v.Get("scheduling.slots").([]interface{}); ok && len(raw) > 0 {
		var slots []SlotConfig
		if err := mapstructure.Decode(raw, &slots); err != nil {
			return nil, fmt.Errorf("decode scheduling.slots: %w", err)
		}
		if len(slots) > 0 {
			return slots, nil
		}
	}
	if raw := v.GetString("SCHEDULING_SLOTS"); raw != "" {
		return ParseSlots(raw)
	}
	return append([]SlotConfig(nil), DefaultSlots...), nil
}

// ParseSlots parses "08:00-09:30,09:40-11:10" into slot configs.
func ParseSlots(raw string) ([]SlotConfig, error) {
	parts := splitAndTrim(raw)
	generic := make([]map[string]string, 0, len(parts))
	for _, part := range parts {
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid slot %q: expected HH:MM-HH:MM", part)
		}
		generic = append(generic, map[string]string{
			"start": strings.TrimSpace(bounds[0]),
			"end":   strings.TrimSpace(bounds[1]),
		})
	}
	var slots []SlotConfig
	if err := mapstructure.Decode(generic, &slots); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return slots, nil
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
