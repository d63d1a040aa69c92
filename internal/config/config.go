package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"campus-eats-be/internal/payment"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv     string
	AppPort    string
	AppBaseURL string
	CORSOrigin string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	PhonePeMerchantID string
	PhonePeSaltKey    string
	PhonePeSaltIndex  string
	PhonePeBaseURL    string
	PhonePeTimeout    time.Duration

	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string

	KafkaBrokers string
	NotifyTopic  string
}

// Load reads the environment (and .env if present). Every missing required
// key is reported in a single error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		AppPort:    getEnv("APP_PORT", "8080"),
		AppBaseURL: strings.TrimRight(os.Getenv("APP_BASE_URL"), "/"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),

		PhonePeMerchantID: os.Getenv("PHONEPE_MERCHANT_ID"),
		PhonePeSaltKey:    os.Getenv("PHONEPE_SALT_KEY"),
		PhonePeSaltIndex:  os.Getenv("PHONEPE_SALT_INDEX"),
		PhonePeBaseURL:    os.Getenv("PHONEPE_BASE_URL"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		NotifyTopic:  getEnv("NOTIFY_TOPIC", "order-notifications"),
	}

	if cfg.PhonePeBaseURL == "" {
		switch strings.ToUpper(os.Getenv("PHONEPE_ENV")) {
		case "PROD", "PRODUCTION":
			cfg.PhonePeBaseURL = payment.PhonePeProductionURL
		case "SANDBOX", "UAT", "PREPROD":
			cfg.PhonePeBaseURL = payment.PhonePeSandboxURL
		}
	}

	timeout, err := time.ParseDuration(getEnv("PHONEPE_TIMEOUT", "15s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid PHONEPE_TIMEOUT %q", os.Getenv("PHONEPE_TIMEOUT"))
	}
	cfg.PhonePeTimeout = timeout

	required := []struct {
		key   string
		value string
	}{
		{"PHONEPE_MERCHANT_ID", cfg.PhonePeMerchantID},
		{"PHONEPE_SALT_KEY", cfg.PhonePeSaltKey},
		{"PHONEPE_SALT_INDEX", cfg.PhonePeSaltIndex},
		{"PHONEPE_BASE_URL or PHONEPE_ENV", cfg.PhonePeBaseURL},
		{"APP_BASE_URL", cfg.AppBaseURL},
		{"JWT_SECRET", cfg.JWTSecret},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func (c *Config) UsePostgres() bool {
	return c.DBHost != ""
}

func (c *Config) PhonePeCallbackURL() string {
	return c.AppBaseURL + "/payments/callback"
}

// PhonePeRedirectURL is where the customer lands after paying; the page
// polls the order status.
func (c *Config) PhonePeRedirectURL() string {
	return c.AppBaseURL + "/order/status"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
