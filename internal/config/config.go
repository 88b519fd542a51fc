// Package config loads application configuration from environment
// variables into an immutable struct that is constructed once at
// startup and injected into the services; nothing reads the environment
// after Load returns.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Key material is kept
// as base64-encoded PEM exactly as it appears in the environment; the
// token codec decodes it on use.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	DBMaxOpenConns    int           // optional, pool cap
	DBMaxIdleConns    int           // optional, kept idle connections
	DBConnMaxLifetime time.Duration // optional, connection recycle age

	AccessPrivateKey string // base64-encoded PEM RSA private key
	AccessPublicKey  string // base64-encoded PEM RSA public key
	AccessTTLMin     int    // access token time-to-live in minutes
	RefreshTTLDays   int    // refresh token time-to-live in days
	VerifyTTL        time.Duration
	VerifyBaseURL    string // external base URL used in verification links

	BcryptCost  int
	RabbitMQURL string // optional, defaults applied by the queue package
}

// Load reads configuration from environment variables. Required
// variables are enforced by must(); missing values exit with a fatal
// log message before the server binds anything.
func Load() Config {
	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		DBUser:            must("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"),
		DBHost:            must("DB_HOST"),
		DBPort:            must("DB_PORT"),
		DBName:            must("DB_NAME"),
		DBMaxOpenConns:    intOr("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    intOr("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: time.Duration(intOr("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		AccessPrivateKey:  must("ACCESS_TOKEN_PRIVATE_KEY"),
		AccessPublicKey:   must("ACCESS_TOKEN_PUBLIC_KEY"),
		AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:    mustInt("REFRESH_TOKEN_TTL_DAYS"),
		VerifyTTL:         time.Duration(intOr("VERIFY_TOKEN_TTL_MIN", 60)) * time.Minute,
		VerifyBaseURL:     must("VERIFY_BASE_URL"),
		BcryptCost:        mustInt("BCRYPT_COST"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an
// integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// intOr reads an optional integer variable with a default.
func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
