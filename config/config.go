package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth0     Auth0Config
	Redis     RedisConfig
	Cache     CacheConfig
	CORS      CORSConfig
	S3        S3Config
	Scheduler SchedulerConfig
	Edits     EditsConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
}

type Auth0Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Audience     string
	Timeout      time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type CacheConfig struct {
	// IdentityTTL caps how long a resolved credential is trusted.
	IdentityTTL time.Duration
	KeyPrefix   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	BaseURL         string // CloudFront or S3 direct URL
	PresignTTL      time.Duration
}

// Enabled reports whether export snapshots can be stored.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type SchedulerConfig struct {
	// FilterReconcileSpec is a cron spec; empty disables the job.
	FilterReconcileSpec string
}

type EditsConfig struct {
	ApplyConcurrency int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			GinMode:         getEnv("GIN_MODE", "debug"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "bizdir"),
			Password:     getEnv("DB_PASSWORD", ""),
			DBName:       getEnv("DB_NAME", "bizdir"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns: parseInt(getEnv("DB_MAX_IDLE_CONNS", "10")),
			MaxOpenConns: parseInt(getEnv("DB_MAX_OPEN_CONNS", "50")),
		},
		Auth0: Auth0Config{
			Domain:       getEnv("AUTH0_DOMAIN", ""),
			ClientID:     getEnv("AUTH0_CLIENT_ID", ""),
			ClientSecret: getEnv("AUTH0_CLIENT_SECRET", ""),
			Audience:     getEnv("AUTH0_AUDIENCE", ""),
			Timeout:      parseDuration(getEnv("AUTH0_TIMEOUT", "10s")),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0")),
		},
		Cache: CacheConfig{
			IdentityTTL: parseDuration(getEnv("IDENTITY_CACHE_TTL", "30m")),
			KeyPrefix:   getEnv("IDENTITY_CACHE_PREFIX", "bizdir:identity:"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("EXPORT_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("EXPORT_S3_ENDPOINT", ""),
			BaseURL:         getEnv("EXPORT_S3_BASE_URL", ""),
			PresignTTL:      parseDuration(getEnv("EXPORT_PRESIGN_TTL", "1h")),
		},
		Scheduler: SchedulerConfig{
			FilterReconcileSpec: getEnv("FILTER_RECONCILE_CRON", "0 3 * * *"),
		},
		Edits: EditsConfig{
			ApplyConcurrency: parseInt(getEnv("EDIT_APPLY_CONCURRENCY", "8")),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Server.Environment == "production" {
		if c.Auth0.Domain == "" || c.Auth0.ClientID == "" || c.Auth0.ClientSecret == "" {
			return fmt.Errorf("AUTH0_DOMAIN, AUTH0_CLIENT_ID and AUTH0_CLIENT_SECRET are required in production")
		}
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 15m", s)
		return 15 * time.Minute
	}
	return duration
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using 0", s)
		return 0
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Printf("Invalid boolean %s, using false", s)
		return false
	}
	return b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
