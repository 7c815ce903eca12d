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
	Env      string
	HTTPAddr string

	DatabaseURL string

	// AdminAPIToken gates the staff appointment-visibility endpoint. There
	// is no per-user staff login in this system (see internal/booking's
	// admin routes) — one shared bearer token per deployment.
	AdminAPIToken string

	// SMTP delivery, internal/email.NewSMTPSender's parameters.
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string

	// LLM backend selection, internal/agent/llm.Config.
	LLMProvider string
	LLMAPIKey   string
	LLMModel    string

	// PlatformTenantID identifies the tenant row the Chat Router falls
	// back to for platform-level FAQ handling, per
	// internal/agent/router.Config.
	PlatformTenantID string

	// Booking-agent options, spec.md's Configuration table.
	CalendarMode              string // "real" or "mock"
	CalendarReadRequired      bool
	CalendarBusyCacheTTL      time.Duration
	BookingFarDateConfirmDays int
	MaxAvailabilityRangeDays  int
	HoldCleanupInterval       time.Duration
	FeatureSMS                bool
	FeatureVoice              bool
	FeatureVoiceWeb           bool
	FeatureCalendarBooking    bool
	FollowupMaxPerSession     int
	FollowupCooldown          time.Duration
	RequireEmailFirst         bool

	SecretEncryptionKey string // secretcrypto key: exactly 32 bytes, used as-is (cmd/api ignores any other length)
	CarrierAuthToken    string // HMAC signature-validation secret for carrier webhooks
	SMSSimulatorMode    bool
	CarrierBaseURL      string // SMS carrier API base URL
	CarrierAccountSID   string // basic-auth username
	CarrierFromNumber   string // sending number, E.164

	// Background job queue (outbox dispatch, per spec.md §5's worker set).
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
}

func (c *Config) GetDatabaseURL() string    { return c.DatabaseURL }
func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetAdminAPIToken() string  { return c.AdminAPIToken }
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AdminAPIToken: getEnv("ADMIN_API_TOKEN", ""),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		EmailFrom:     getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Booking Assistant"),

		LLMProvider: getEnv("LLM_PROVIDER", "moonshot"),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMModel:    getEnv("LLM_MODEL", ""),

		PlatformTenantID: getEnv("PLATFORM_TENANT_ID", ""),

		CalendarMode:              getEnv("CALENDAR_MODE", "mock"),
		CalendarReadRequired:      strings.EqualFold(getEnv("CALENDAR_READ_REQUIRED", "false"), "true"),
		CalendarBusyCacheTTL:      time.Duration(mustInt(getEnv("CALENDAR_BUSY_CACHE_TTL_SECONDS", "30"))) * time.Second,
		BookingFarDateConfirmDays: mustInt(getEnv("BOOKING_FAR_DATE_CONFIRM_DAYS", "30")),
		MaxAvailabilityRangeDays:  mustInt(getEnv("MAX_AVAILABILITY_RANGE_DAYS", "14")),
		HoldCleanupInterval:       time.Duration(mustInt(getEnv("HOLD_CLEANUP_INTERVAL_MS", "60000"))) * time.Millisecond,
		FeatureSMS:                strings.EqualFold(getEnv("FEATURE_SMS", "false"), "true"),
		FeatureVoice:              strings.EqualFold(getEnv("FEATURE_VOICE", "false"), "true"),
		FeatureVoiceWeb:           strings.EqualFold(getEnv("FEATURE_VOICE_WEB", "false"), "true"),
		FeatureCalendarBooking:    strings.EqualFold(getEnv("FEATURE_CALENDAR_BOOKING", "true"), "true"),
		FollowupMaxPerSession:     mustInt(getEnv("FOLLOWUP_MAX_PER_SESSION", "3")),
		FollowupCooldown:          mustDuration(getEnv("FOLLOWUP_COOLDOWN", "30m")),
		RequireEmailFirst:         strings.EqualFold(getEnv("REQUIRE_EMAIL_FIRST", "true"), "true"),

		SecretEncryptionKey: getEnv("SECRET_ENCRYPTION_KEY", ""),
		CarrierAuthToken:    getEnv("CARRIER_AUTH_TOKEN", ""),
		SMSSimulatorMode:    strings.EqualFold(getEnv("SMS_SIMULATOR_MODE", "true"), "true"),
		CarrierBaseURL:      getEnv("CARRIER_BASE_URL", ""),
		CarrierAccountSID:   getEnv("CARRIER_ACCOUNT_SID", ""),
		CarrierFromNumber:   getEnv("CARRIER_FROM_NUMBER", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SMTPHost == "" || cfg.EmailFrom == "" {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required for the verification-code email gate")
	}
	if cfg.FeatureCalendarBooking && cfg.CalendarMode == "real" && cfg.SecretEncryptionKey == "" {
		return nil, fmt.Errorf("SECRET_ENCRYPTION_KEY is required when CALENDAR_MODE=real")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
