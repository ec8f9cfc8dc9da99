package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Store      StoreConfig
	Moderation ModerationConfig
	Upload     UploadConfig
	Media      MediaConfig
	AWS        AWSConfig
	Gemini     GeminiConfig
	Auth       AuthConfig
	Outcome    OutcomeConfig
}

type ServerConfig struct {
	Port     string
	GinMode  string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// StoreConfig selects the event aggregate store backend.
type StoreConfig struct {
	Backend            string // "postgres" or "redis"
	AdmissionRetries   int
	AdmissionRetryWait time.Duration
}

type ModerationConfig struct {
	MinConfidence        float64
	MaxLabels            int
	LabelAttempts        int
	RelevanceAttempts    int
	IndeterminateRetries int
	CallTimeout          time.Duration
	BackoffBase          time.Duration
	BackoffMax           time.Duration
	MaxConcurrentCalls   int64
}

type UploadConfig struct {
	MaxFileSize int64
}

type MediaConfig struct {
	Backend        string // "disk" or "minio"
	Dir            string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type AWSConfig struct {
	Region    string
	AccessID  string
	AccessKey string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type AuthConfig struct {
	JWTSecret string
}

type OutcomeConfig struct {
	Backend    string // "memory" or "redis"
	BufferSize int
	ConsumerID string
}

var AppConfig *Config

func LoadConfig() *Config {
	_ = godotenv.Load()

	AppConfig = &Config{
		Server:     GetServerConfig(),
		Database:   GetDatabaseConfig(),
		Redis:      GetRedisConfig(),
		Store:      GetStoreConfig(),
		Moderation: GetModerationConfig(),
		Upload:     UploadConfig{MaxFileSize: getEnvAsInt64("UPLOAD_MAX_FILE_SIZE", 10<<20)},
		Media:      GetMediaConfig(),
		AWS: AWSConfig{
			Region:    getEnv("AWS_REGION", "us-east-1"),
			AccessID:  getEnv("AWS_ACCESS_ID", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Auth: AuthConfig{JWTSecret: getEnv("JWT_SECRET", "")},
		Outcome: OutcomeConfig{
			Backend:    getEnv("OUTCOME_QUEUE", "redis"),
			BufferSize: getEnvAsInt("OUTCOME_BUFFER_SIZE", 1024),
			ConsumerID: getEnv("OUTCOME_CONSUMER_ID", ""),
		},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("TEST_DB_HOST", "localhost"),
			Port:     getEnv("TEST_DB_PORT", "5433"), // 測試 DB 用 5433 port
			User:     "postgres",
			Password: "postgres",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     "6380", // 測試 Redis 用 6380 port
			Password: "",
			DB:       1,
		},
		Store:      StoreConfig{Backend: "postgres", AdmissionRetries: 3, AdmissionRetryWait: time.Millisecond},
		Moderation: DefaultModerationConfig(),
	}
	cfg.Moderation.BackoffBase = time.Millisecond
	cfg.Moderation.BackoffMax = 5 * time.Millisecond
	return cfg
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 0),
	}
}

func GetStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:            getEnv("STORE_BACKEND", "postgres"),
		AdmissionRetries:   getEnvAsInt("ADMISSION_MAX_RETRIES", 3),
		AdmissionRetryWait: getEnvAsDuration("ADMISSION_RETRY_WAIT", 20*time.Millisecond),
	}
}

// DefaultModerationConfig holds the pipeline defaults: confidence 50, 3 label
// attempts, one extra ask on an indeterminate answer, 10s per external call.
func DefaultModerationConfig() ModerationConfig {
	return ModerationConfig{
		MinConfidence:        50,
		MaxLabels:            10,
		LabelAttempts:        3,
		RelevanceAttempts:    3,
		IndeterminateRetries: 1,
		CallTimeout:          10 * time.Second,
		BackoffBase:          200 * time.Millisecond,
		BackoffMax:           2 * time.Second,
		MaxConcurrentCalls:   8,
	}
}

func GetModerationConfig() ModerationConfig {
	d := DefaultModerationConfig()
	return ModerationConfig{
		MinConfidence:        getEnvAsFloat("MODERATION_MIN_CONFIDENCE", d.MinConfidence),
		MaxLabels:            getEnvAsInt("MODERATION_MAX_LABELS", d.MaxLabels),
		LabelAttempts:        getEnvAsInt("MODERATION_LABEL_ATTEMPTS", d.LabelAttempts),
		RelevanceAttempts:    getEnvAsInt("MODERATION_RELEVANCE_ATTEMPTS", d.RelevanceAttempts),
		IndeterminateRetries: getEnvAsInt("MODERATION_INDETERMINATE_RETRIES", d.IndeterminateRetries),
		CallTimeout:          getEnvAsDuration("MODERATION_CALL_TIMEOUT", d.CallTimeout),
		BackoffBase:          getEnvAsDuration("MODERATION_BACKOFF_BASE", d.BackoffBase),
		BackoffMax:           getEnvAsDuration("MODERATION_BACKOFF_MAX", d.BackoffMax),
		MaxConcurrentCalls:   getEnvAsInt64("MODERATION_MAX_CONCURRENT_CALLS", d.MaxConcurrentCalls),
	}
}

func GetMediaConfig() MediaConfig {
	return MediaConfig{
		Backend:        getEnv("MEDIA_BACKEND", "disk"),
		Dir:            getEnv("UPLOADS_DIR", "./uploads"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "event-media"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return fallback
}
