package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion string

	// Storage. The catalog table co-locates product, plan, and resource
	// rows; subscriptions live in their own table with a change stream.
	CatalogTable           string
	SubscriptionsTable     string
	PlansIndex             string
	ResourcesIndex         string
	SubscriptionsPlanIndex string

	// Change-event pipeline
	EventBusName       string
	DeadLetterQueueURL string
	MetricsNamespace   string
	StreamMaxAttempts  int

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),

		CatalogTable:           getEnv("CATALOG_TABLE", "catalog"),
		SubscriptionsTable:     getEnv("SUBSCRIPTIONS_TABLE", "catalog-subscriptions"),
		PlansIndex:             getEnv("PLANS_INDEX", "PlansIndex"),
		ResourcesIndex:         getEnv("RESOURCES_INDEX", "ResourcesIndex"),
		SubscriptionsPlanIndex: getEnv("SUBSCRIPTIONS_PLAN_INDEX", "PlanIndex"),

		EventBusName:       getEnv("EVENT_BUS_NAME", "catalog-events"),
		DeadLetterQueueURL: getEnv("DEAD_LETTER_QUEUE_URL", ""),
		MetricsNamespace:   getEnv("METRICS_NAMESPACE", "Catalog"),
		StreamMaxAttempts:  getEnvInt("STREAM_MAX_ATTEMPTS", 3),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.CatalogTable == "" {
		return fmt.Errorf("CATALOG_TABLE is required")
	}
	if c.SubscriptionsTable == "" {
		return fmt.Errorf("SUBSCRIPTIONS_TABLE is required")
	}
	if c.Environment == "production" {
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required in production")
		}
	}
	if c.StreamMaxAttempts < 1 {
		return fmt.Errorf("STREAM_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
