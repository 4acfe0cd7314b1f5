package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings                 `mapstructure:"app"`
	Postgres  PostgresSettings            `mapstructure:"postgres"`
	Redis     RedisSettings               `mapstructure:"redis"`
	Kafka     KafkaSettings               `mapstructure:"kafka"`
	Claims    ClaimSettings               `mapstructure:"claims"`
	Limiter   LimiterSettings             `mapstructure:"limiter"`
	Argon2    Argon2Settings              `mapstructure:"argon2"`
	Mail      MailSettings                `mapstructure:"mail"`
	Telemetry TelemetrySettings           `mapstructure:"telemetry"`
	Providers map[string]ProviderSettings `mapstructure:"providers"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	URL  string `mapstructure:"url"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the limiter store connection.
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	LimiterPrefix string `mapstructure:"limiter_prefix"`
}

// KafkaSettings configures the audit event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// ClaimSettings configures issuance TTLs and signing keys.
type ClaimSettings struct {
	Issuer       string        `mapstructure:"issuer"`
	KeyDirectory string        `mapstructure:"key_directory"`
	TTL          time.Duration `mapstructure:"ttl"`
	TicketTTL    time.Duration `mapstructure:"ticket_ttl"`
}

// LimiterSettings configures failed-login lockout behavior. FailOpen decides
// the policy when the limiter store is unreachable: true lets legitimate
// logins proceed, false refuses all password logins. The choice is explicit,
// never accidental.
type LimiterSettings struct {
	Window       time.Duration `mapstructure:"window"`
	Threshold    int           `mapstructure:"threshold"`
	FailOpen     bool          `mapstructure:"fail_open"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	FailureDelay time.Duration `mapstructure:"failure_delay"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// MailSettings configures outbound mail identity.
type MailSettings struct {
	From string `mapstructure:"from"`
}

type TelemetrySettings struct {
	MetricsPort  int     `mapstructure:"metrics_port"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// ProviderSettings is the uniform typed configuration record for an external
// identity provider. Absence of a provider's block omits that adapter from
// the active set.
type ProviderSettings struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	CallbackURL  string   `mapstructure:"callback_url"`
	AutoRegister bool     `mapstructure:"auto_register"`
	Scopes       []string `mapstructure:"scopes"`
	// MultiValued allows several identifiers per account (certificate DNs,
	// OIDC subjects).
	MultiValued bool `mapstructure:"multi_valued"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.url",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.limiter_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"claims.issuer",
		"claims.key_directory",
		"claims.ttl",
		"claims.ticket_ttl",
		"limiter.window",
		"limiter.threshold",
		"limiter.fail_open",
		"limiter.store_timeout",
		"limiter.failure_delay",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"mail.from",
		"telemetry.metrics_port",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	v.SetConfigName("auth")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *AppConfig) error {
	if cfg.Limiter.Threshold <= 0 {
		return fmt.Errorf("limiter.threshold must be positive")
	}
	if cfg.Claims.TTL <= 0 {
		return fmt.Errorf("claims.ttl must be positive")
	}
	for name, p := range cfg.Providers {
		if name != "x509" && name != "saml" && p.ClientID == "" {
			return fmt.Errorf("provider %s: client_id is required", name)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.url", "http://localhost:8080")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "auth")
	v.SetDefault("postgres.password", "auth_password")
	v.SetDefault("postgres.database", "auth")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.limiter_prefix", "auth:failed")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "auth")

	v.SetDefault("claims.issuer", "auth")
	v.SetDefault("claims.key_directory", "./secrets")
	v.SetDefault("claims.ttl", "24h")
	v.SetDefault("claims.ticket_ttl", "5m")

	v.SetDefault("limiter.window", "1h")
	v.SetDefault("limiter.threshold", 3)
	v.SetDefault("limiter.fail_open", true)
	v.SetDefault("limiter.store_timeout", "2s")
	v.SetDefault("limiter.failure_delay", "500ms")

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("mail.from", "noreply@localhost")

	v.SetDefault("telemetry.metrics_port", 9090)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
