package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port        string            `mapstructure:"port"`
	Mongo       DatabaseConfig    `mapstructure:"mongo"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Suggestions SuggestionsConfig `mapstructure:"suggestions"`
}

// Directory definition directory_service YAML structure
type Directory struct {
	Port        string         `mapstructure:"port"`
	PostgreSQL  DatabaseConfig `mapstructure:"postgresql"`
	Redis       RedisConfig    `mapstructure:"redis"`
	PresenceTTL time.Duration  `mapstructure:"presence_ttl"`
}

// Media definition media_service YAML structure
type Media struct {
	Port       string         `mapstructure:"port"`
	PostgreSQL DatabaseConfig `mapstructure:"postgresql"`
	MinIO      MinIOConfig    `mapstructure:"minio"`
	RabbitMQ   RabbitConfig   `mapstructure:"rabbitmq"`
	URLExpiry  time.Duration  `mapstructure:"url_expiry"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	BucketName    string        `mapstructure:"bucket_name"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// RabbitConfig definition rabbitmq setting
type RabbitConfig struct {
	IP            string        `mapstructure:"ip"`
	Port          string        `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// SuggestionsConfig definition reply suggestion setting; URL empty
// disables the feature
type SuggestionsConfig struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}
