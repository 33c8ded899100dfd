package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
// A .env file in the working directory is honored for local development.
type Config struct {
	InputPath string
	OutputDir string
	RulesPath string

	LogLevel  string
	LogFormat string
	HTTPAddr  string

	// Optional /metrics listener for the batch command. Empty disables it.
	MetricsAddr string

	ShutdownTimeout time.Duration

	// Optional SQLite artifact store.
	SQLitePath string

	// Optional Kafka export of cleaned observations.
	KafkaBrokers     []string
	KafkaExportTopic string
	ExportBatchSize  int
}

// ExportEnabled reports whether the Kafka export sink is configured.
func (c *Config) ExportEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaExportTopic != ""
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseInt("EXPORT_BATCH_SIZE", 500)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InputPath: envOrDefault("INPUT_CSV", "data/raw/GlobalWeatherRepository.csv"),
		OutputDir: envOrDefault("OUTPUT_DIR", "data/processed"),
		RulesPath: os.Getenv("RULES_FILE"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:  envOrDefault("HTTP_ADDR", ":8080"),

		MetricsAddr: os.Getenv("METRICS_ADDR"),

		ShutdownTimeout: shutdownTimeout,

		SQLitePath: os.Getenv("SQLITE_PATH"),

		KafkaBrokers:     parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaExportTopic: os.Getenv("KAFKA_EXPORT_TOPIC"),
		ExportBatchSize:  batchSize,
	}

	if cfg.InputPath == "" {
		return nil, errors.New("INPUT_CSV is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaExportTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_EXPORT_TOPIC is set but KAFKA_BROKERS is not")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
