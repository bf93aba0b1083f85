package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	AuthJWTSecret string
	OTLPEndpoint  string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EventStream           string
	EventRelayIntervalSec int
	EventRelayBatchSize   int

	Registry RegistryConfig
	IDP      IDPConfig
	Email    EmailConfig

	// StaffOrgGroups maps staff-tier org type codes to the identity-provider
	// group their members belong to. A user may hold at most one active
	// membership across these org types.
	StaffOrgGroups map[string]string

	AffiliationDebug bool
}

// StaffOrgTypes returns the staff-tier org type codes.
func (c Config) StaffOrgTypes() []string {
	types := make([]string, 0, len(c.StaffOrgGroups))
	for typeCode := range c.StaffOrgGroups {
		types = append(types, typeCode)
	}
	return types
}

// RegistryConfig holds endpoints and credentials for the business registry APIs.
type RegistryConfig struct {
	NamesURL      string
	BusinessesURL string
	LegalAPIURL   string
	PayAPIURL     string

	TokenURL     string
	ClientID     string
	ClientSecret string
}

// IDPConfig holds the identity-provider admin API settings.
type IDPConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
}

// EmailConfig holds SMTP settings for outbound notifications.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AppBaseURL   string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "registra"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		OTLPEndpoint:  getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "registra"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		EventStream:           getenv("EVENT_STREAM", "registra:events"),
		EventRelayIntervalSec: getenvInt("EVENT_RELAY_INTERVAL_SECONDS", 5),
		EventRelayBatchSize:   getenvInt("EVENT_RELAY_BATCH_SIZE", 100),

		Registry: RegistryConfig{
			NamesURL:      getenv("NAMES_AFFILIATION_DETAILS_URL", ""),
			BusinessesURL: getenv("BUSINESSES_AFFILIATION_DETAILS_URL", ""),
			LegalAPIURL:   getenv("LEGAL_API_URL", ""),
			PayAPIURL:     getenv("PAY_API_URL", ""),
			TokenURL:      getenv("REGISTRY_TOKEN_URL", ""),
			ClientID:      strings.TrimSpace(getenv("ENTITY_SVC_CLIENT_ID", "")),
			ClientSecret:  strings.TrimSpace(getenv("ENTITY_SVC_CLIENT_SECRET", "")),
		},
		IDP: IDPConfig{
			BaseURL:      getenv("IDP_BASE_URL", ""),
			Realm:        getenv("IDP_REALM", "registra"),
			ClientID:     strings.TrimSpace(getenv("IDP_ADMIN_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(getenv("IDP_ADMIN_CLIENT_SECRET", "")),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@registra.local"),
			AppBaseURL:   getenv("APP_BASE_URL", "http://localhost:3000"),
		},

		StaffOrgGroups: getenvMap("STAFF_ORG_GROUPS", map[string]string{
			"MAXIMUS_STAFF": "maximus_staff",
			"CC_STAFF":      "contact_centre_staff",
			"SBC_STAFF":     "sbc_staff",
		}),
		AffiliationDebug: getenvBool("AFFILIATION_DEBUG", false),
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// getenvMap parses "KEY:value,KEY:value" pairs.
func getenvMap(key string, def map[string]string) map[string]string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	out := make(map[string]string)
	for _, part := range strings.Split(value, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found || k == "" || v == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
