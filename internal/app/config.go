package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	SentryDSN   string

	// Voice AI providers
	DeepgramAPIKey string
	OpenAIAPIKey   string
	OpenAIModel    string

	// STT settings
	STTLanguage   string
	STTModel      string
	STTSampleRate int

	// Google Calendar mirror
	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenFile    string
	GoogleCalendarID   string

	// JWT Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Device provisioning
	ProvisioningKey string

	// APNs Push Notifications
	APNsKeyPath    string
	APNsKeyID      string
	APNsTeamID     string
	APNsBundleID   string
	APNsProduction bool

	// Due-reminder notifier
	NotifierInterval time.Duration
}

func LoadConfigFromEnv() Config {
	jwtExpiry, err := time.ParseDuration(getenv("JWT_EXPIRY", "720h"))
	if err != nil {
		jwtExpiry = 720 * time.Hour
	}

	notifierInterval, err := time.ParseDuration(getenv("NOTIFIER_INTERVAL", "1m"))
	if err != nil {
		notifierInterval = time.Minute
	}

	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		SentryDSN:   getenv("SENTRY_DSN", ""),

		// Voice AI providers
		DeepgramAPIKey: getenv("DEEPGRAM_API_KEY", ""),
		OpenAIAPIKey:   getenv("OPENAI_API_KEY", ""),
		OpenAIModel:    getenv("OPENAI_MODEL", ""),

		// STT settings
		STTLanguage:   getenv("STT_LANGUAGE", "en"),
		STTModel:      getenv("STT_MODEL", "nova-3"),
		STTSampleRate: getenvInt("STT_SAMPLE_RATE", 16000),

		// Google Calendar mirror
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleTokenFile:    getenv("GOOGLE_TOKEN_FILE", ""),
		GoogleCalendarID:   getenv("GOOGLE_CALENDAR_ID", "primary"),

		// JWT Authentication
		JWTSecret: os.Getenv("JWT_SECRET"), // Required - no fallback for security
		JWTExpiry: jwtExpiry,

		// Device provisioning
		ProvisioningKey: os.Getenv("PROVISIONING_KEY"),

		// APNs Push Notifications
		APNsKeyPath:    getenv("APNS_KEY_PATH", ""),
		APNsKeyID:      getenv("APNS_KEY_ID", ""),
		APNsTeamID:     getenv("APNS_TEAM_ID", ""),
		APNsBundleID:   getenv("APNS_BUNDLE_ID", ""),
		APNsProduction: getenv("APNS_PRODUCTION", "false") == "true",

		// Due-reminder notifier
		NotifierInterval: notifierInterval,
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
