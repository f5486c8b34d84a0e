package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// TokenIssuer is the iss claim of every access token
	TokenIssuer = "dutyfinder-api"
	// TokenAudience is the aud claim of every access token
	TokenAudience = "dutyfinder-intranet"
	// MinJWTSecretLength keeps HS256 keys at least as long as the hash
	MinJWTSecretLength = 32
	// TestJWTSecret signs tokens when GO_ENV=test and JWT_SECRET is unset
	TestJWTSecret = "test-secret-for-dutyfinder-api-0123456789"
)

// Config holds all application configuration
type Config struct {
	Port               string
	GoEnv              string
	DBDriver           string
	DatabaseURL        string
	JWTSecret          string
	JWTTTL             time.Duration
	AdminPassword      string
	LogLevel           string
	LogFormat          string
	CORSOrigins        []string
	RedisURL           string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	BackupInterval     time.Duration
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// On the intranet server the variables are usually set by the service unit
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTL:             getDuration("JWT_TTL", 12*time.Hour),
		AdminPassword:      getEnv("ADMIN_PASSWORD", "admin"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
		RedisURL:           getEnv("REDIS_URL", ""),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		BackupInterval:     getDuration("BACKUP_INTERVAL", time.Minute),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.IsTest() {
		if c.JWTSecret == "" {
			c.JWTSecret = TestJWTSecret
		}
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must have at least %d characters", MinJWTSecretLength)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// S3Enabled reports whether object storage credentials are configured
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != "" && c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s (%q), using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
