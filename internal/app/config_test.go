package app

import (
	"os"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		defValue string
		want     string
	}{
		{
			name:     "env set",
			envKey:   "TEST_ENV_VAR",
			envValue: "custom_value",
			defValue: "default",
			want:     "custom_value",
		},
		{
			name:     "env not set",
			envKey:   "TEST_ENV_VAR_NOTSET",
			envValue: "",
			defValue: "default",
			want:     "default",
		},
		{
			name:     "empty default",
			envKey:   "TEST_ENV_VAR_EMPTY",
			envValue: "",
			defValue: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenv(tt.envKey, tt.defValue)
			if got != tt.want {
				t.Errorf("getenv(%q, %q) = %q, want %q", tt.envKey, tt.defValue, got, tt.want)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		def      int
		want     int
	}{
		{
			name:     "value set",
			envKey:   "TEST_INT_NORMAL",
			envValue: "48000",
			def:      16000,
			want:     48000,
		},
		{
			name:     "env not set - use default",
			envKey:   "TEST_INT_NOTSET",
			envValue: "",
			def:      16000,
			want:     16000,
		},
		{
			name:     "invalid value - use default",
			envKey:   "TEST_INT_INVALID",
			envValue: "not_a_number",
			def:      16000,
			want:     16000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenvInt(tt.envKey, tt.def)
			if got != tt.want {
				t.Errorf("getenvInt(%q, %d) = %d, want %d", tt.envKey, tt.def, got, tt.want)
			}
		})
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	keysToClean := []string{
		"HTTP_ADDR", "DATABASE_URL", "JWT_EXPIRY",
		"STT_LANGUAGE", "STT_MODEL", "STT_SAMPLE_RATE",
		"GOOGLE_CALENDAR_ID", "NOTIFIER_INTERVAL",
	}
	for _, key := range keysToClean {
		os.Unsetenv(key)
	}

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}

	if cfg.JWTExpiry != 720*time.Hour {
		t.Errorf("JWTExpiry = %v, want %v", cfg.JWTExpiry, 720*time.Hour)
	}

	// STT defaults
	if cfg.STTLanguage != "en" {
		t.Errorf("STTLanguage = %q, want %q", cfg.STTLanguage, "en")
	}

	if cfg.STTModel != "nova-3" {
		t.Errorf("STTModel = %q, want %q", cfg.STTModel, "nova-3")
	}

	if cfg.STTSampleRate != 16000 {
		t.Errorf("STTSampleRate = %d, want %d", cfg.STTSampleRate, 16000)
	}

	if cfg.GoogleCalendarID != "primary" {
		t.Errorf("GoogleCalendarID = %q, want %q", cfg.GoogleCalendarID, "primary")
	}

	if cfg.NotifierInterval != time.Minute {
		t.Errorf("NotifierInterval = %v, want %v", cfg.NotifierInterval, time.Minute)
	}
}

func TestLoadConfigFromEnvCustomValues(t *testing.T) {
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_EXPIRY", "48h")
	os.Setenv("STT_LANGUAGE", "cs")
	os.Setenv("STT_SAMPLE_RATE", "48000")
	os.Setenv("NOTIFIER_INTERVAL", "30s")
	os.Setenv("APNS_PRODUCTION", "true")

	defer func() {
		os.Unsetenv("HTTP_ADDR")
		os.Unsetenv("JWT_EXPIRY")
		os.Unsetenv("STT_LANGUAGE")
		os.Unsetenv("STT_SAMPLE_RATE")
		os.Unsetenv("NOTIFIER_INTERVAL")
		os.Unsetenv("APNS_PRODUCTION")
	}()

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}

	if cfg.JWTExpiry != 48*time.Hour {
		t.Errorf("JWTExpiry = %v, want %v", cfg.JWTExpiry, 48*time.Hour)
	}

	if cfg.STTLanguage != "cs" {
		t.Errorf("STTLanguage = %q, want %q", cfg.STTLanguage, "cs")
	}

	if cfg.STTSampleRate != 48000 {
		t.Errorf("STTSampleRate = %d, want %d", cfg.STTSampleRate, 48000)
	}

	if cfg.NotifierInterval != 30*time.Second {
		t.Errorf("NotifierInterval = %v, want %v", cfg.NotifierInterval, 30*time.Second)
	}

	if !cfg.APNsProduction {
		t.Error("APNsProduction = false, want true")
	}
}

func TestLoadConfigFromEnvInvalidDurations(t *testing.T) {
	os.Setenv("JWT_EXPIRY", "garbage")
	os.Setenv("NOTIFIER_INTERVAL", "garbage")
	defer func() {
		os.Unsetenv("JWT_EXPIRY")
		os.Unsetenv("NOTIFIER_INTERVAL")
	}()

	cfg := LoadConfigFromEnv()

	if cfg.JWTExpiry != 720*time.Hour {
		t.Errorf("JWTExpiry = %v, want fallback %v", cfg.JWTExpiry, 720*time.Hour)
	}
	if cfg.NotifierInterval != time.Minute {
		t.Errorf("NotifierInterval = %v, want fallback %v", cfg.NotifierInterval, time.Minute)
	}
}
