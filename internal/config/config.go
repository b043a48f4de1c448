// Package config provides configuration management for the instalens service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Credential is one username/password pair usable for scraping.
type Credential struct {
	Username string
	Password string
}

// Config holds all configuration for the instalens service.
type Config struct {
	// Server settings
	Port     int
	LogLevel string

	// Account pool settings
	Accounts            []Credential
	AccountDBPath       string
	MaxFailsPerAccount  int
	MinDelayBetweenUses time.Duration

	// Browser settings
	Headless   bool
	ChromePath string

	// Session settings
	SessionTTL   time.Duration
	LoginTimeout time.Duration

	// Extraction settings
	NavigationTimeout time.Duration
	ScrollDelay       time.Duration
	MaxScrollAttempts int
	MaxRecords        int

	// HTTP surface
	AllowedOrigins     []string
	RateLimitPerMinute int
	AdminAPISecret     string

	// Driver-fatal breaker
	BreakerThreshold int
}

// Load creates a Config from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:                getEnvInt("PORT", 8320),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Accounts:            parseCredentials(getEnv("IG_ACCOUNTS", "")),
		AccountDBPath:       getEnv("ACCOUNT_DB_PATH", ""),
		MaxFailsPerAccount:  getEnvInt("MAX_FAILS_PER_ACCOUNT", 3),
		MinDelayBetweenUses: getEnvDuration("MIN_DELAY_BETWEEN_USES", 5*time.Minute),
		Headless:            getEnv("HEADLESS", "true") != "false",
		ChromePath:          getEnv("CHROME_PATH", ""),
		SessionTTL:          getEnvDuration("SESSION_TTL", 30*time.Minute),
		LoginTimeout:        getEnvDuration("LOGIN_TIMEOUT", 30*time.Second),
		NavigationTimeout:   getEnvDuration("NAVIGATION_TIMEOUT", 30*time.Second),
		ScrollDelay:         getEnvDuration("SCROLL_DELAY", 2*time.Second),
		MaxScrollAttempts:   getEnvInt("MAX_SCROLL_ATTEMPTS", 10),
		MaxRecords:          getEnvInt("MAX_RECORDS", 50),
		AllowedOrigins:      parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		AdminAPISecret:      getEnv("ADMIN_API_SECRET", ""),
		BreakerThreshold:    getEnvInt("BREAKER_THRESHOLD", 3),
	}
}

// parseCredentials parses "user1:pass1,user2:pass2" into credential pairs.
// Entries missing a username or password are skipped.
func parseCredentials(raw string) []Credential {
	if raw == "" {
		return nil
	}
	var creds []Credential
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, pass, ok := strings.Cut(entry, ":")
		if !ok || user == "" || pass == "" {
			continue
		}
		creds = append(creds, Credential{Username: user, Password: pass})
	}
	return creds
}

// parseList parses a comma-separated list, trimming whitespace.
func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
