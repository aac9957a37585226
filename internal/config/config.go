// Package config loads the bridge configuration.
//
// Priority, highest first:
//  1. Environment variables with the BRIDGE_ prefix (BRIDGE_WOOACRY_SECRET, ...),
//     plus a few conventional names such as POSTGRES_URL and KAFKA_BROKERS
//  2. config.yaml
//  3. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	LedgerShopify  = "shopify"
	LedgerPostgres = "postgres"
	LedgerMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Wooacry   WooacryConfig
	Shopify   ShopifyConfig
	Ledger    LedgerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Addr            string        `validate:"required"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type WooacryConfig struct {
	BaseURL      string        `validate:"required,url"`
	ResellerFlag string        `validate:"required"`
	Secret       string        `validate:"required"`
	Version      string        `validate:"required"`
	Timeout      time.Duration `validate:"gt=0"`
	// CreateTimeout bounds order submission, which outlives the inbound request.
	CreateTimeout time.Duration `validate:"gt=0"`
	// ShippingSecret guards the shipping webhook when set.
	ShippingSecret string
}

type ShopifyConfig struct {
	Store             string
	AccessToken       string
	APIVersion        string        `validate:"required"`
	Timeout           time.Duration `validate:"gt=0"`
	RequestsPerSecond float64       `validate:"gt=0"`
	Burst             int           `validate:"gt=0"`
	WebhookSecret     string
}

// Enabled reports whether Admin API credentials are configured.
func (c ShopifyConfig) Enabled() bool {
	return c.Store != "" && c.AccessToken != ""
}

type LedgerConfig struct {
	Backend string `validate:"oneof=shopify postgres memory"`
}

type PostgresConfig struct {
	URL          string
	MaxOpenConns int `validate:"gte=0"`
	MaxIdleConns int `validate:"gte=0"`
}

type RedisConfig struct {
	// Addr enables the cross-replica order lock when set.
	Addr       string
	Password   string
	DB         int `validate:"gte=0"`
	LockPrefix string
}

type KafkaConfig struct {
	Brokers     []string
	GroupID     string `validate:"required"`
	OrdersTopic string `validate:"required"`
	EventsTopic string `validate:"required"`
}

type TelemetryConfig struct {
	ServiceName  string `validate:"required"`
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64 `validate:"gte=0,lte=1"`
}

// SlogLevel parses Level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("wooacry.base_url", "https://api-new.wooacry.com")
	v.SetDefault("wooacry.reseller_flag", "")
	v.SetDefault("wooacry.secret", "")
	v.SetDefault("wooacry.version", "1")
	v.SetDefault("wooacry.timeout", 15*time.Second)
	v.SetDefault("wooacry.create_timeout", 30*time.Second)
	v.SetDefault("wooacry.shipping_secret", "")

	v.SetDefault("shopify.store", "")
	v.SetDefault("shopify.access_token", "")
	v.SetDefault("shopify.api_version", "2024-01")
	v.SetDefault("shopify.timeout", 10*time.Second)
	v.SetDefault("shopify.requests_per_second", 2.0)
	v.SetDefault("shopify.burst", 10)
	v.SetDefault("shopify.webhook_secret", "")

	v.SetDefault("ledger.backend", LedgerShopify)

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_prefix", "wooacry-bridge:lock:")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.group_id", "wooacry-bridge")
	v.SetDefault("kafka.orders_topic", "shopify.orders.create")
	v.SetDefault("kafka.events_topic", "wooacry.order.submitted")

	v.SetDefault("telemetry.service_name", "wooacry-bridge")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// conventional names accepted alongside the BRIDGE_ ones
var envAliases = map[string]string{
	"postgres.url":            "POSTGRES_URL",
	"kafka.brokers":           "KAFKA_BROKERS",
	"telemetry.otlp_endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
	"server.addr":             "ADDR",
}

// Load reads path when given, otherwise an optional config.yaml in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		bridgeName := "BRIDGE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, bridgeName, alias); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			Level: strings.ToLower(v.GetString("log.level")),
		},
		Wooacry: WooacryConfig{
			BaseURL:        strings.TrimRight(v.GetString("wooacry.base_url"), "/"),
			ResellerFlag:   v.GetString("wooacry.reseller_flag"),
			Secret:         v.GetString("wooacry.secret"),
			Version:        v.GetString("wooacry.version"),
			Timeout:        v.GetDuration("wooacry.timeout"),
			CreateTimeout:  v.GetDuration("wooacry.create_timeout"),
			ShippingSecret: v.GetString("wooacry.shipping_secret"),
		},
		Shopify: ShopifyConfig{
			Store:             v.GetString("shopify.store"),
			AccessToken:       v.GetString("shopify.access_token"),
			APIVersion:        v.GetString("shopify.api_version"),
			Timeout:           v.GetDuration("shopify.timeout"),
			RequestsPerSecond: v.GetFloat64("shopify.requests_per_second"),
			Burst:             v.GetInt("shopify.burst"),
			WebhookSecret:     v.GetString("shopify.webhook_secret"),
		},
		Ledger: LedgerConfig{
			Backend: strings.ToLower(v.GetString("ledger.backend")),
		},
		Postgres: PostgresConfig{
			URL:          v.GetString("postgres.url"),
			MaxOpenConns: v.GetInt("postgres.max_open_conns"),
			MaxIdleConns: v.GetInt("postgres.max_idle_conns"),
		},
		Redis: RedisConfig{
			Addr:       v.GetString("redis.addr"),
			Password:   v.GetString("redis.password"),
			DB:         v.GetInt("redis.db"),
			LockPrefix: v.GetString("redis.lock_prefix"),
		},
		Kafka: KafkaConfig{
			Brokers:     stringList(v, "kafka.brokers"),
			GroupID:     v.GetString("kafka.group_id"),
			OrdersTopic: v.GetString("kafka.orders_topic"),
			EventsTopic: v.GetString("kafka.events_topic"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  v.GetString("telemetry.service_name"),
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
			Insecure:     v.GetBool("telemetry.insecure"),
			SampleRatio:  v.GetFloat64("telemetry.sample_ratio"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Ledger.Backend {
	case LedgerShopify:
		if !c.Shopify.Enabled() {
			return errors.New("ledger.backend=shopify requires shopify.store and shopify.access_token")
		}
	case LedgerPostgres:
		if c.Postgres.URL == "" {
			return errors.New("ledger.backend=postgres requires postgres.url")
		}
	}

	if c.Postgres.MaxIdleConns > c.Postgres.MaxOpenConns && c.Postgres.MaxOpenConns > 0 {
		return fmt.Errorf("postgres.max_idle_conns (%d) cannot exceed postgres.max_open_conns (%d)",
			c.Postgres.MaxIdleConns, c.Postgres.MaxOpenConns)
	}

	return nil
}

// stringList accepts both a YAML list and a comma separated env value.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
