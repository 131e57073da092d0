package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	RabbitMQ   RabbitMQConfig  `mapstructure:"rabbitmq"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Consumer   ConsumerConfig  `mapstructure:"consumer"`
	Sanctions  SanctionsConfig `mapstructure:"sanctions"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type RabbitMQConfig struct {
	URL            string        `mapstructure:"url"`
	Exchange       string        `mapstructure:"exchange"`
	QueuePrefix    string        `mapstructure:"queue_prefix"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	Heartbeat      time.Duration `mapstructure:"heartbeat"`
	QueueTTL       time.Duration `mapstructure:"queue_ttl"`
	QueueMaxLength int64         `mapstructure:"queue_max_length"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	FailThreshold int           `mapstructure:"fail_threshold"`
	OpenFor       time.Duration `mapstructure:"open_for"`
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

type ConsumerConfig struct {
	Name          string        `mapstructure:"name"`
	TenantID      string        `mapstructure:"tenant_id"`
	MaxRetries    int           `mapstructure:"max_retries"`
	ConfirmURL    string        `mapstructure:"confirm_url"`
	ConfirmAPIKey string        `mapstructure:"confirm_api_key"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
}

type SanctionsConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (FINTEGRATE_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (FINTEGRATE_*)
	v.SetEnvPrefix("FINTEGRATE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
