package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseFile         string        // Optional: path to SQLite database file (default: ./idcheck.db)
	ClientCredentials    string        // Required: registered clients as "client_id=argon2id-hash" pairs separated by ';'
	CodeTTL              time.Duration // Authorization code lifetime (default: 10m)
	TokenTTL             time.Duration // Access token advisory lifetime (default: 1h)
	CodeRetention        time.Duration // How long exchanged/expired code rows are kept for replay detection (default: 30 days)
	AuditTimeout         time.Duration // Upper bound on audit event delivery (default: 2s)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile:         getEnvOrDefault("IDCHECK_DATABASE_FILE", "idcheck.db"),
		ClientCredentials:    os.Getenv("IDCHECK_CLIENT_CREDENTIALS"),
		CodeTTL:              getEnvDurationOrDefault("IDCHECK_CODE_TTL", 10*time.Minute),
		TokenTTL:             getEnvDurationOrDefault("IDCHECK_TOKEN_TTL", time.Hour),
		CodeRetention:        getEnvDurationOrDefault("IDCHECK_CODE_RETENTION", 30*24*time.Hour),
		AuditTimeout:         getEnvDurationOrDefault("IDCHECK_AUDIT_TIMEOUT", 2*time.Second),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// ParseClientCredentials splits the configured client list into a map of
// client_id to secret hash. Pairs are separated by ';' because argon2id PHC
// strings contain '$' and ','.
func ParseClientCredentials(raw string) (map[string]string, error) {
	clients := make(map[string]string)

	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		id, hash, ok := strings.Cut(pair, "=")
		if !ok || id == "" || hash == "" {
			return nil, fmt.Errorf("malformed client credential entry %q", pair)
		}
		if !strings.HasPrefix(hash, "$argon2id$") {
			return nil, fmt.Errorf("client %q secret is not an argon2id hash", id)
		}
		clients[id] = hash
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("no registered clients configured")
	}
	return clients, nil
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

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are treated as seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
