// Package config loads runtime settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
	DriverMongo    = "mongo"
)

const minJWTSecretLength = 32

var (
	ErrJWTSecretRequired = errors.New("JWT_SECRET environment variable is required")
	ErrJWTSecretTooShort = fmt.Errorf("JWT_SECRET must be at least %d characters long", minJWTSecretLength)
	ErrUnknownDriver     = errors.New("unknown STORE_DRIVER")
	ErrDatabaseURL       = errors.New("DATABASE_URL is required for the postgres driver")
	ErrMongoURI          = errors.New("MONGO_URI is required for the mongo driver")
	ErrNoKafkaBrokers    = errors.New("KAFKA_BROKERS is required")
)

// Config holds every setting of the api, projector and gramctl binaries.
type Config struct {
	Env      string
	HTTPAddr string

	StoreDriver         string
	DatabaseURL         string
	MongoURI            string
	MongoDatabase       string
	AWSRegion           string
	DynamoEndpoint      string
	DynamoProductsTable string
	DynamoSalesTable    string

	KafkaBrokers       []string
	KafkaTopic         string
	KafkaConsumerGroup string

	JWTSecret string
	TokenTTL  time.Duration

	SellMaxAttempts   int
	SellTimeout       time.Duration
	WriteTimeout      time.Duration
	ExpiryHorizonDays int
	ReconcileInterval time.Duration

	OTLPEndpoint    string
	ShutdownTimeout time.Duration
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvMillis(key string, defaultMs int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMs)) * time.Millisecond
}

func getEnvList(key string) []string {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load collects configuration from the environment with defaults.
func Load() Config {
	return Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		StoreDriver:         strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		MongoURI:            getEnv("MONGO_URI", ""),
		MongoDatabase:       getEnv("MONGO_DATABASE", "gramstore"),
		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-1"),
		DynamoEndpoint:      getEnv("DYNAMODB_ENDPOINT", ""),
		DynamoProductsTable: getEnv("DYNAMODB_PRODUCTS_TABLE", "gramstore-products"),
		DynamoSalesTable:    getEnv("DYNAMODB_SALES_TABLE", "gramstore-sales"),

		KafkaBrokers:       getEnvList("KAFKA_BROKERS"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "gramstore-sales"),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "sales-projector"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 15)) * time.Minute,

		SellMaxAttempts:   getEnvInt("SELL_MAX_ATTEMPTS", 5),
		SellTimeout:       getEnvMillis("SELL_TIMEOUT_MS", 5000),
		WriteTimeout:      getEnvMillis("WRITE_TIMEOUT_MS", 2000),
		ExpiryHorizonDays: getEnvInt("EXPIRY_HORIZON_DAYS", 10),
		ReconcileInterval: getEnvMillis("RECONCILE_INTERVAL_MS", 5000),

		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT", 10)) * time.Second,
	}
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate checks the settings every binary depends on.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		return ErrJWTSecretTooShort
	}
	return c.ValidateStore()
}

// ValidateStore checks only the store selection.
func (c Config) ValidateStore() error {
	switch c.StoreDriver {
	case DriverMemory, DriverDynamoDB:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURL
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return ErrMongoURI
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.StoreDriver)
	}
	return nil
}

// ValidateKafka checks that a consumer has brokers to read from.
func (c Config) ValidateKafka() error {
	if len(c.KafkaBrokers) == 0 {
		return ErrNoKafkaBrokers
	}
	return nil
}
