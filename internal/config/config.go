package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Cleaner inputs and outputs.
	RawURL      string
	RawPath     string
	CleanedPath string
	JSONLPath   string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	DBHost           string
	DBPort           int
	DBName           string
	DBUser           string
	DBPassword       string
	DBSSLMode        string
	DBConnectRetries int
	DBConnectDelay   time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory fills in anything the
// environment leaves unset; a missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	connectDelay, err := parseDuration("DB_CONNECT_DELAY", "2s")
	if err != nil {
		return nil, err
	}

	dbPort, err := parseInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	connectRetries, err := parseInt("DB_CONNECT_RETRIES", 30)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RawURL:      os.Getenv("RAW_URL"),
		RawPath:     envOrDefault("RAW_PATH", "data/raw.csv"),
		CleanedPath: envOrDefault("CLEANED_PATH", "data/cleaned.csv"),
		JSONLPath:   envOrDefault("JSONL_PATH", "data/messages.jsonl"),

		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "velib-stations"),
		KafkaGroupID: envOrDefault("KAFKA_GROUP_ID", "velib-consumer"),

		DBHost:           envOrDefault("DB_HOST", "localhost"),
		DBPort:           dbPort,
		DBName:           envOrDefault("DB_NAME", "velib"),
		DBUser:           envOrDefault("DB_USER", "velib"),
		DBPassword:       envOrDefault("DB_PASSWORD", "velib"),
		DBSSLMode:        envOrDefault("DB_SSL_MODE", "disable"),
		DBConnectRetries: connectRetries,
		DBConnectDelay:   connectDelay,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.KafkaGroupID == "" {
		return nil, errors.New("KAFKA_GROUP_ID is required")
	}
	if cfg.DBName == "" {
		return nil, errors.New("DB_NAME is required")
	}
	if cfg.DBUser == "" {
		return nil, errors.New("DB_USER is required")
	}
	if cfg.DBPort <= 0 || cfg.DBPort > 65535 {
		return nil, errors.New("DB_PORT must be a valid port number")
	}
	if cfg.DBConnectRetries < 0 {
		return nil, errors.New("DB_CONNECT_RETRIES must not be negative")
	}

	return cfg, nil
}

// DSN renders the PostgreSQL connection string in keyword form.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
