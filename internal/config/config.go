package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	ServerPort string

	StorageDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret         string
	SessionTTL        time.Duration
	MinPasswordLength int
	BcryptCost        int

	RedisURL string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	DefaultAvatarURL string
	DefaultAvatarKey string

	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	// CORSAllowedOrigins lists browser origins allowed to call the API; "*" allows any.
	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string

	WorkerCount int
}

// MediaEnabled reports whether R2 credentials are configured.
func (c *Config) MediaEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found or error loading it, relying on environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	sessionTTL, err := strconv.Atoi(os.Getenv("SESSION_TTL"))
	if err != nil || sessionTTL <= 0 {
		sessionTTL = 86400
	}

	minPasswordLength, err := strconv.Atoi(os.Getenv("MIN_PASSWORD_LENGTH"))
	if err != nil || minPasswordLength <= 0 {
		minPasswordLength = 6
	}

	bcryptCost, err := strconv.Atoi(os.Getenv("BCRYPT_COST"))
	if err != nil || bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	rateLimitRPS, err := strconv.ParseFloat(os.Getenv("AUTH_RATE_LIMIT_RPS"), 64)
	if err != nil || rateLimitRPS <= 0 {
		rateLimitRPS = 5
	}

	rateLimitBurst, err := strconv.Atoi(os.Getenv("AUTH_RATE_LIMIT_BURST"))
	if err != nil || rateLimitBurst <= 0 {
		rateLimitBurst = 10
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8800"),

		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		SessionTTL:        time.Duration(sessionTTL) * time.Second,
		MinPasswordLength: minPasswordLength,
		BcryptCost:        bcryptCost,

		RedisURL: os.Getenv("REDIS_URL"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		DefaultAvatarURL: os.Getenv("DEFAULT_AVATAR_URL"),
		DefaultAvatarKey: os.Getenv("DEFAULT_AVATAR_KEY"),

		AuthRateLimitRPS:   rateLimitRPS,
		AuthRateLimitBurst: rateLimitBurst,

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		WorkerCount: workerCount,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
