package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaGroupID    string
	CatalogTopic    string
	CatalogDLQTopic string

	// Enrichment (LLM)
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModelName   string
	LLMTemperature float64
	EnrichCacheTTL time.Duration

	// Image search
	ImageSearchBaseURL string
	ImageSearchTimeout time.Duration

	// Pipeline tuning
	EnrichBatchSize    int
	ImageBatchSize     int
	RateLimitPause     time.Duration
	RateLimitRetries   int
	BucketCapacity     int
	BucketRefillPeriod time.Duration

	// Ingestion
	DataDir        string
	SourceManifest string
	BufferFile     string
	MaxRawFileSize int64
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 120*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "kspirits"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "kspirits123"),
		PostgresDB:       getEnv("POSTGRES_DB", "kspirits"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "kspirits-platform"),
		CatalogTopic:    getEnv("CATALOG_EVENTS_TOPIC", "catalog-events"),
		CatalogDLQTopic: getEnv("CATALOG_DLQ_TOPIC", ""),

		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:   getEnv("LLM_MODEL_NAME", "gpt-4o-mini"),
		LLMTemperature: getFloatEnv("LLM_TEMPERATURE", 0.7),
		EnrichCacheTTL: getDuration("ENRICH_CACHE_TTL", 24*time.Hour),

		ImageSearchBaseURL: getEnv("IMAGE_SEARCH_BASE_URL", "https://www.google.com/search"),
		ImageSearchTimeout: getDuration("IMAGE_SEARCH_TIMEOUT", 15*time.Second),

		EnrichBatchSize:    getIntEnv("ENRICH_BATCH_SIZE", 5),
		ImageBatchSize:     getIntEnv("IMAGE_BATCH_SIZE", 10),
		RateLimitPause:     getDuration("RATE_LIMIT_PAUSE", 30*time.Second),
		RateLimitRetries:   getIntEnv("RATE_LIMIT_RETRIES", 3),
		BucketCapacity:     getIntEnv("BUCKET_CAPACITY", 1),
		BucketRefillPeriod: getDuration("BUCKET_REFILL_PERIOD", 1*time.Second),

		DataDir:        getEnv("DATA_DIR", "data"),
		SourceManifest: getEnv("SOURCE_MANIFEST", "data/sources.yaml"),
		BufferFile:     getEnv("INGEST_BUFFER_FILE", "data/ingested-data.json"),
		MaxRawFileSize: int64(getIntEnv("MAX_RAW_FILE_BYTES", 50*1024*1024)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
