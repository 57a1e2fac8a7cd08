package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	Port                string
	PageSize            int
	AutosaveDelay       time.Duration
	Timezone            string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILSTATE_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("MAILSTATE_ENCRYPTION_KEY_BASE64"),
		DBHost:              getEnvOrDefault("MAILSTATE_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("MAILSTATE_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("MAILSTATE_DB_USER", "mailstate"),
		DBPassword:          os.Getenv("MAILSTATE_DB_PASSWORD"),
		DBName:              getEnvOrDefault("MAILSTATE_DB_NAME", "mailstate"),
		DBSSLMode:           getEnvOrDefault("MAILSTATE_DB_SSLMODE", "disable"),
		Port:                getEnvOrDefault("PORT", "8080"),
		PageSize:            getEnvIntOrDefault("MAILSTATE_PAGE_SIZE", 100),
		AutosaveDelay:       time.Duration(getEnvIntOrDefault("MAILSTATE_AUTOSAVE_DELAY_MS", 2000)) * time.Millisecond,
		Timezone:            getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("MAILSTATE_ENCRYPTION_KEY_BASE64 is required")
	}

	key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("MAILSTATE_ENCRYPTION_KEY_BASE64 is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("MAILSTATE_ENCRYPTION_KEY_BASE64 must decode to 32 bytes, got %d", len(key))
	}

	if c.DBPassword == "" {
		return fmt.Errorf("MAILSTATE_DB_PASSWORD is required")
	}

	if err := validatePort(c.DBPort, "MAILSTATE_DB_PORT"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "PORT"); err != nil {
		return err
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("MAILSTATE_PAGE_SIZE must be positive")
	}

	return nil
}

func validatePort(port, name string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("%s is not a valid port number: %s", name, port)
	}
	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUsername),
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
