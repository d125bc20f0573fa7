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

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	LedgerBackend       string
	BoltPath            string
	RetainExcessPayment bool
	IdempotencyTTL      time.Duration
	WorkerPollInterval  time.Duration
	WorkerBatchSize     int

	LogLevel  string
	LogFormat string
}

// Load reads the process environment. A .env file in the working directory, or
// the file named by ENV_FILE, is applied first without overriding variables
// that are already set.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "atelier"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("LEDGER_BACKEND")))
	if backend == "" {
		backend = BackendMemory
	}
	switch backend {
	case BackendMemory, BackendPostgres, BackendBolt:
	default:
		return Config{}, fmt.Errorf("unsupported LEDGER_BACKEND %q", backend)
	}

	boltPath := strings.TrimSpace(os.Getenv("BOLT_PATH"))
	if boltPath == "" {
		boltPath = "atelier-ledger.db"
	}

	cfg := Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		LedgerBackend:       backend,
		BoltPath:            boltPath,
		RetainExcessPayment: envBool("LEDGER_RETAIN_EXCESS_PAYMENT", false),
		IdempotencyTTL:      envDuration("LEDGER_IDEMPOTENCY_TTL", 7*24*time.Hour),
		WorkerPollInterval:  envDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		WorkerBatchSize:     envInt("WORKER_BATCH_SIZE", 100),

		LogLevel:  strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		LogFormat: strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
	}
	if cfg.LedgerBackend == BackendPostgres && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return Config{}, errors.New("POSTGRES_DSN is required for the postgres backend")
	}
	return cfg, nil
}

func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
