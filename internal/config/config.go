package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTP_PORT        string `env:"HTTP_PORT"`
	DB_STRING        string `env:"DB_STRING"`
	KAFKA_BROKERS    string `env:"KAFKA_BROKERS"`
	KAFKA_TOPIC      string `env:"KAFKA_TOPIC"`
	KAFKA_GROUP_ID   string `env:"KAFKA_GROUP_ID"`
	WORKERS          int    `env:"WORKERS"`
	BATCH_SIZE       int    `env:"BATCH_SIZE"`
	MIGRATE_ON_START bool   `env:"MIGRATE_ON_START"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTP_PORT:        os.Getenv("HTTP_PORT"),
		DB_STRING:        os.Getenv("DB_STRING"),
		KAFKA_BROKERS:    os.Getenv("KAFKA_BROKERS"),
		KAFKA_TOPIC:      os.Getenv("KAFKA_TOPIC"),
		KAFKA_GROUP_ID:   os.Getenv("KAFKA_GROUP_ID"),
		WORKERS:          intEnv("WORKERS", 4),
		BATCH_SIZE:       intEnv("BATCH_SIZE", 20),
		MIGRATE_ON_START: boolEnv("MIGRATE_ON_START", true),
	}

	if cfg.HTTP_PORT == "" {
		cfg.HTTP_PORT = "8080"
	}
	if cfg.KAFKA_BROKERS == "" {
		cfg.KAFKA_BROKERS = "localhost:9092"
	}
	if cfg.KAFKA_TOPIC == "" {
		cfg.KAFKA_TOPIC = "orders_raw"
	}
	if cfg.KAFKA_GROUP_ID == "" {
		cfg.KAFKA_GROUP_ID = "orders-etl"
	}

	return cfg, nil
}

func intEnv(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func boolEnv(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
