package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverDynamo   = "dynamo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AppName        string
	FrontendDomain string
	AllowedOrigins []string // CORS allowed origins

	Auth Auth

	StorageDriver string // dynamo | postgres | memory
	SessionStore  string // empty = same as StorageDriver, "redis" = Redis

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	S3PublicURL    string // when set, photo URLs are built from it instead of presigning
	S3PresignTTL   time.Duration

	DatabaseURL string
	RedisURL    string

	Photo Photo

	MailTransport string // smtp | sns | log
	MailFrom      string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SNSTopicARN   string

	LogLevel  string
	LogFormat string

	// When both are set the first admin account is created at startup.
	SeedAdminEmail    string
	SeedAdminPassword string
}

// Auth holds token secrets and lifetimes. Every purpose has its own secret.
type Auth struct {
	AccessSecret       string
	AccessTTL          time.Duration
	RefreshSecret      string
	RefreshTTL         time.Duration
	ConfirmEmailSecret string
	ConfirmEmailTTL    time.Duration
	ForgotSecret       string
	ForgotTTL          time.Duration
	BcryptCost         int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users    string
	Sessions string
}

// Photo holds profile photo limits.
type Photo struct {
	MaxBytes     int64
	AllowedTypes []string
	Compress     bool
	Quality      int
}

// Load reads all configuration from environment variables.
// Missing token secrets are reported as an error.
func Load() (*Config, error) {
	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AppName:        getEnv("APP_NAME", "Users API"),
		FrontendDomain: strings.TrimRight(getEnv("FRONTEND_DOMAIN", "http://localhost:3000"), "/"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		Auth: Auth{
			AccessSecret:       os.Getenv("AUTH_JWT_SECRET"),
			AccessTTL:          getEnvDuration("AUTH_JWT_TOKEN_EXPIRES_IN", 15*time.Minute),
			RefreshSecret:      os.Getenv("AUTH_REFRESH_SECRET"),
			RefreshTTL:         getEnvDuration("AUTH_REFRESH_TOKEN_EXPIRES_IN", 3650*24*time.Hour),
			ConfirmEmailSecret: os.Getenv("AUTH_CONFIRM_EMAIL_SECRET"),
			ConfirmEmailTTL:    getEnvDuration("AUTH_CONFIRM_EMAIL_TOKEN_EXPIRES_IN", 24*time.Hour),
			ForgotSecret:       os.Getenv("AUTH_FORGOT_SECRET"),
			ForgotTTL:          getEnvDuration("AUTH_FORGOT_TOKEN_EXPIRES_IN", 30*time.Minute),
			BcryptCost:         getEnvInt("AUTH_JWT_ROUNDS_OF_HASHING", 10),
		},
		StorageDriver:  getEnv("STORAGE_DRIVER", DriverDynamo),
		SessionStore:   getEnv("SESSION_STORE", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:    getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions: getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "users-api-files"),
		S3PublicURL:  strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		S3PresignTTL: getEnvDuration("S3_PRESIGN_TTL", time.Hour),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		Photo: Photo{
			MaxBytes:     int64(getEnvInt("PHOTO_MAX_BYTES", 2*1024*1024)),
			AllowedTypes: strings.Split(getEnv("PHOTO_ALLOWED_TYPES", "image/jpeg,image/png"), ","),
			Compress:     getEnvBool("PHOTO_COMPRESS", false),
			Quality:      getEnvInt("PHOTO_QUALITY", 80),
		},
		MailTransport: getEnv("MAIL_TRANSPORT", "smtp"),
		MailFrom:      getEnv("MAIL_FROM", "noreply@example.com"),
		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnv("SMTP_PORT", "1025"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SNSTopicARN:   getEnv("SNS_TOPIC_ARN", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),

		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	required := map[string]string{
		"AUTH_JWT_SECRET":           c.Auth.AccessSecret,
		"AUTH_REFRESH_SECRET":       c.Auth.RefreshSecret,
		"AUTH_CONFIRM_EMAIL_SECRET": c.Auth.ConfirmEmailSecret,
		"AUTH_FORGOT_SECRET":        c.Auth.ForgotSecret,
	}
	for _, key := range []string{"AUTH_JWT_SECRET", "AUTH_REFRESH_SECRET", "AUTH_CONFIRM_EMAIL_SECRET", "AUTH_FORGOT_SECRET"} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	switch c.StorageDriver {
	case DriverDynamo, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.SessionStore != "" && c.SessionStore != "redis" {
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}
	if c.MailTransport == "sns" && c.SNSTopicARN == "" {
		errs = append(errs, errors.New("SNS_TOPIC_ARN is required for the sns mail transport"))
	}
	if (c.SeedAdminEmail == "") != (c.SeedAdminPassword == "") {
		errs = append(errs, errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// ParseDuration accepts Go duration syntax plus a "d" suffix for whole days ("10d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
