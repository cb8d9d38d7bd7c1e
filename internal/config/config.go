package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Webhook    WebhookConfig
	Provider   ProviderConfig
	Credential CredentialConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// WebhookConfig controls verification of inbound identity-provider events.
type WebhookConfig struct {
	// SigningSecret is the shared secret the provider signs deliveries
	// with, in its "whsec_" base64 form.
	SigningSecret string
	// Tolerance bounds how far a delivery timestamp may drift from local
	// time before verification fails.
	Tolerance time.Duration
}

// ProviderConfig covers verification of the primary identity provider's
// session tokens on authenticated endpoints.
type ProviderConfig struct {
	SessionSecret string
	Issuer        string
}

// CredentialConfig controls minting of backend session credentials.
type CredentialConfig struct {
	Secret string
	// TTL is the fixed validity window of a minted credential.
	TTL time.Duration
	// RefreshBuffer treats a credential expiring within this window as
	// already expired, so clients never hold a token that dies mid-request.
	RefreshBuffer time.Duration
	// SweepInterval is how often expired credentials are cleared from
	// stored records.
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	webhookSecret := getEnv("WEBHOOK_SIGNING_SECRET", "")
	if webhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SIGNING_SECRET is required")
	}

	providerSecret := getEnv("PROVIDER_SESSION_SECRET", "")
	if providerSecret == "" {
		return nil, fmt.Errorf("PROVIDER_SESSION_SECRET is required")
	}

	credentialSecret := getEnv("CREDENTIAL_SECRET", "")
	if credentialSecret == "" {
		return nil, fmt.Errorf("CREDENTIAL_SECRET is required")
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "tether"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Webhook: WebhookConfig{
			SigningSecret: webhookSecret,
			Tolerance:     getEnvAsDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		Provider: ProviderConfig{
			SessionSecret: providerSecret,
			Issuer:        getEnv("PROVIDER_ISSUER", ""),
		},
		Credential: CredentialConfig{
			Secret:        credentialSecret,
			TTL:           getEnvAsDuration("CREDENTIAL_TTL", 30*24*time.Hour),
			RefreshBuffer: getEnvAsDuration("CREDENTIAL_REFRESH_BUFFER", 24*time.Hour),
			SweepInterval: getEnvAsDuration("CREDENTIAL_SWEEP_INTERVAL", 1*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSecret("CREDENTIAL_SECRET", credentialSecret, env); err != nil {
		return nil, err
	}
	if err := validateSecret("PROVIDER_SESSION_SECRET", providerSecret, env); err != nil {
		return nil, err
	}

	if cfg.Credential.RefreshBuffer >= cfg.Credential.TTL {
		return nil, fmt.Errorf("CREDENTIAL_REFRESH_BUFFER must be shorter than CREDENTIAL_TTL")
	}

	return cfg, nil
}

// validateSecret enforces minimum strength for signing secrets
func validateSecret(name, secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
