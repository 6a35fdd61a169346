package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	Port         int               `json:"port"`
	LogConfig    logger.LogConfig  `json:"log_config"`
	Database     DatabaseConfig    `json:"database"`
	Converter    ConverterConfig   `json:"converter"`
	DateLocation string            `json:"date_location"`
	APIKeyCache  APIKeyCacheConfig `json:"apikey_cache"`
	RateLimit    RateLimitConfig   `json:"rate_limit"`
	FileStore    FileStoreConfig   `json:"file_store"`
	Audit        AuditConfig       `json:"audit"`
	CORSOrigins  []string          `json:"cors_origins"`
	MaxUploadMB  int               `json:"max_upload_mb"`
}

type DatabaseConfig struct {
	Driver        string `json:"driver"`
	DSN           string `json:"dsn"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	User          string `json:"user"`
	Password      string `json:"password"`
	DBName        string `json:"dbname"`
	SSLMode       string `json:"sslmode"`
	Path          string `json:"path"`
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`
	MaxOpenConns  int    `json:"max_open_conns"`
}

type ConverterConfig struct {
	Backend    string            `json:"backend"`
	Attributes map[string]string `json:"attributes"`
}

type APIKeyCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type RateLimitConfig struct {
	WindowMs      int    `json:"window_ms"`
	Limit         int    `json:"limit"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AuditConfig struct {
	Cron string `json:"cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case DriverSqlite:
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverMongo:
		if cfg.Database.MongoURI == "" {
			return fmt.Errorf("database.mongo_uri is required for mongo")
		}
		if cfg.Database.MongoDatabase == "" {
			cfg.Database.MongoDatabase = "adocstore"
		}
	default:
		return fmt.Errorf("database.driver must be postgres, sqlite or mongo")
	}
	if cfg.Converter.Backend == "" {
		cfg.Converter.Backend = "html5"
	}
	if cfg.APIKeyCache.Size == 0 {
		cfg.APIKeyCache.Size = 1024
	}
	if cfg.APIKeyCache.TTLSeconds == 0 {
		cfg.APIKeyCache.TTLSeconds = 60
	}
	if cfg.RateLimit.WindowMs > 0 && cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = 1
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	return nil
}
