package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           int
	APIKey         string
	VerboseLogging bool
	RateLimit      int

	StoragePath string

	// Per-dispatch network bound. Each transport caps its own attempt at
	// DispatchTimeout; there is no cross-cutting cancellation.
	DispatchTimeout time.Duration

	MQTTWorkers   int
	MQTTQueueSize int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnvInt("PORT", 8080),
		APIKey:         os.Getenv("API_KEY"),
		VerboseLogging: getEnvBool("VERBOSE_LOGGING", false),
		RateLimit:      getEnvInt("RATE_LIMIT", 100),

		StoragePath: getEnvString("STORAGE_PATH", "./data/msgbox.db"),

		DispatchTimeout: time.Duration(getEnvInt("DISPATCH_TIMEOUT_SECONDS", 10)) * time.Second,

		MQTTWorkers:   getEnvInt("MQTT_WORKERS", 4),
		MQTTQueueSize: getEnvInt("MQTT_QUEUE_SIZE", 64),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY environment variable is required")
	}
	if c.MQTTWorkers < 1 {
		return fmt.Errorf("MQTT_WORKERS must be at least 1")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
