package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPPort        int
	SMTPHost        string
	SMTPPort        int
	ModelPath       string
	SMTPAuthEnabled bool
	SMTPUsername    string
	SMTPPassword    string
}

func Load() Config {
	return Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8000),
		SMTPHost:        getEnvString("SMTP_HOST", "0.0.0.0"),
		SMTPPort:        getEnvInt("SMTP_PORT", 1025),
		ModelPath:       getEnvString("MODEL_PATH", "models/spam_model.db"),
		SMTPAuthEnabled: getEnvBool("SMTP_AUTH_ENABLED", false),
		SMTPUsername:    getEnvString("SMTP_USERNAME", "spamwatch"),
		SMTPPassword:    getEnvString("SMTP_PASSWORD", "spamwatch"),
	}
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}
