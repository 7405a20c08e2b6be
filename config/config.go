package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	ImageBackendLocal = "local"
	ImageBackendS3    = "s3"
)

type Config struct {
	HTTP     ServerConfig
	GRPC     GRPCConfig
	Database DatabaseConfig
	Session  SessionConfig
	Tokens   TokenConfig
	Password PasswordConfig
	Images   ImageConfig
	S3       S3Config
	Redis    RedisConfig
	Mail     MailConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type GRPCConfig struct {
	Host           string
	Port           string
	InternalAPIKey string
}

type DatabaseConfig struct {
	Driver      string
	DSN         string
	AutoMigrate bool
}

type SessionConfig struct {
	Secret       string
	CookieName   string
	TTL          time.Duration
	CookieSecure bool
}

type TokenConfig struct {
	ResetTTL     time.Duration
	ResetURLBase string
}

type PasswordConfig struct {
	BcryptCost int
	Policy     PasswordPolicy
}

type ImageConfig struct {
	Backend     string
	Dir         string
	DefaultPath string
	MaxBytes    int64
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PublicURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	From         string
	Retries      int
}

type LogConfig struct {
	Level  string
	Format string
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes long", maxPasswordBytes)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	dsn := getEnv("DB_DSN", os.Getenv("MYSQL_DSN"))
	if dsn == "" {
		return nil, errors.New("DB_DSN environment variable is required")
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverMySQL))
	if driver != DriverMySQL && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	imageBackend := strings.ToLower(getEnv("IMAGE_BACKEND", ImageBackendLocal))
	if imageBackend != ImageBackendLocal && imageBackend != ImageBackendS3 {
		return nil, fmt.Errorf("unsupported IMAGE_BACKEND %q", imageBackend)
	}
	if imageBackend == ImageBackendS3 && os.Getenv("S3_BUCKET") == "" {
		return nil, errors.New("S3_BUCKET environment variable is required for the s3 image backend")
	}

	bcryptCost := getIntEnv("BCRYPT_COST", bcrypt.DefaultCost)
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	return &Config{
		HTTP: ServerConfig{
			Host: os.Getenv("HTTP_HOST"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: GRPCConfig{
			Host:           os.Getenv("GRPC_HOST"),
			Port:           getEnv("GRPC_PORT", "9090"),
			InternalAPIKey: os.Getenv("INTERNAL_API_KEY"),
		},
		Database: DatabaseConfig{
			Driver:      driver,
			DSN:         dsn,
			AutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		Session: SessionConfig{
			Secret:       os.Getenv("SESSION_SECRET"),
			CookieName:   getEnv("SESSION_COOKIE_NAME", "session_id"),
			TTL:          getDurationEnv("SESSION_TTL", time.Hour),
			CookieSecure: getBoolEnv("SESSION_COOKIE_SECURE", false),
		},
		Tokens: TokenConfig{
			ResetTTL:     getDurationEnv("RESET_TOKEN_TTL", 30*time.Minute),
			ResetURLBase: strings.TrimRight(getEnv("RESET_URL_BASE", "http://localhost:8080"), "/"),
		},
		Password: PasswordConfig{
			BcryptCost: bcryptCost,
			Policy:     loadPasswordPolicy(),
		},
		Images: ImageConfig{
			Backend:     imageBackend,
			Dir:         getEnv("IMAGE_DIR", "static"),
			DefaultPath: getEnv("IMAGE_DEFAULT_PATH", "images/profile_pics/profile.jpg"),
			MaxBytes:    int64(getIntEnv("IMAGE_MAX_BYTES", 5<<20)),
		},
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			PublicURL: strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Mail: MailConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			From:         getEnv("MAIL_FROM", "no-reply@localhost"),
			Retries:      getIntEnv("MAIL_RETRIES", 3),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}, nil
}

func (c *Config) DSN() string {
	return c.Database.DSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 1),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", false),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
	}
}
