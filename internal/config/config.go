package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type HTTPConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	AdminEmail    string
	AdminPassword string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type GeocodeConfig struct {
	Endpoint  string
	UserAgent string
	CacheTTL  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

type NotifyConfig struct {
	Timeout time.Duration
	SMTP    SMTPConfig
	Twilio  TwilioConfig
}

type ClassifierConfig struct {
	APIKey string
	Model  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RulesConfig struct {
	InventoryAlertThreshold float64
	CommunityEventPoints    int64
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type SchedulerConfig struct {
	MonthlyResetSpec string
	CleanupSpec      string
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Storage     StorageConfig
	Geocode     GeocodeConfig
	Redis       RedisConfig
	Notify      NotifyConfig
	Classifier  ClassifierConfig
	Kafka       KafkaConfig
	Rules       RulesConfig
	RateLimit   RateLimitConfig
	Scheduler   SchedulerConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AutomaticEnv()

	setDefaults(v)
	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host:        v.GetString("HTTP_HOST"),
			Port:        v.GetInt("HTTP_PORT"),
			CORSOrigins: parseList(v.GetString("HTTP_CORS_ORIGINS")),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("STORE_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
			AccessTTL:     v.GetDuration("JWT_ACCESS_TTL"),
			AdminEmail:    v.GetString("ADMIN_EMAIL"),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			PublicURL: v.GetString("STORAGE_PUBLIC_URL"),
		},
		Geocode: GeocodeConfig{
			Endpoint:  v.GetString("GEOCODE_ENDPOINT"),
			UserAgent: v.GetString("GEOCODE_USER_AGENT"),
			CacheTTL:  v.GetDuration("GEOCODE_CACHE_TTL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Notify: NotifyConfig{
			Timeout: v.GetDuration("NOTIFY_TIMEOUT"),
			SMTP: SMTPConfig{
				Host:     v.GetString("SMTP_HOST"),
				Port:     v.GetInt("SMTP_PORT"),
				Username: v.GetString("SMTP_USERNAME"),
				Password: v.GetString("SMTP_PASSWORD"),
				From:     v.GetString("SMTP_FROM"),
			},
			Twilio: TwilioConfig{
				AccountSID: v.GetString("TWILIO_ACCOUNT_SID"),
				AuthToken:  v.GetString("TWILIO_AUTH_TOKEN"),
				From:       v.GetString("TWILIO_FROM"),
			},
		},
		Classifier: ClassifierConfig{
			APIKey: v.GetString("GEMINI_API_KEY"),
			Model:  v.GetString("GEMINI_MODEL"),
		},
		Kafka: KafkaConfig{
			Brokers: parseList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Rules: RulesConfig{
			InventoryAlertThreshold: v.GetFloat64("INVENTORY_ALERT_THRESHOLD"),
			CommunityEventPoints:    v.GetInt64("POINTS_COMMUNITY_EVENT"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Scheduler: SchedulerConfig{
			MonthlyResetSpec: v.GetString("SCHEDULER_MONTHLY_RESET_SPEC"),
			CleanupSpec:      v.GetString("SCHEDULER_CLEANUP_SPEC"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_CORS_ORIGINS", "*")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("JWT_ACCESS_TTL", "24h")
	v.SetDefault("STORAGE_BUCKET", "ewaste")
	v.SetDefault("GEOCODE_ENDPOINT", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("GEOCODE_USER_AGENT", "ewaste-platform/1.0")
	v.SetDefault("GEOCODE_CACHE_TTL", "24h")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("NOTIFY_TIMEOUT", "10s")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("KAFKA_TOPIC", "ewaste.request-events")
	v.SetDefault("INVENTORY_ALERT_THRESHOLD", 0.9)
	v.SetDefault("POINTS_COMMUNITY_EVENT", 50)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("SCHEDULER_MONTHLY_RESET_SPEC", "0 5 0 * * *")
	v.SetDefault("SCHEDULER_CLEANUP_SPEC", "0 30 3 * * *")
}

func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case StoreDriverPostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Storage.Endpoint == "" {
		return fmt.Errorf("STORAGE_ENDPOINT is required")
	}
	if cfg.Auth.AccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}
	if cfg.Rules.InventoryAlertThreshold <= 0 || cfg.Rules.InventoryAlertThreshold > 1 {
		return fmt.Errorf("INVENTORY_ALERT_THRESHOLD must be in (0, 1]")
	}
	if cfg.Rules.CommunityEventPoints <= 0 {
		return fmt.Errorf("POINTS_COMMUNITY_EVENT must be positive")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
