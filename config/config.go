// Package config loads application settings from an optional fieldtrack.yml
// file, a .env file and environment variables, in increasing precedence.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = "fieldtrack.yml"

type Config struct {
	// APIBaseURL is the field-sales backend, e.g. http://localhost:8090.
	APIBaseURL string `yaml:"apiBaseURL"`
	// StorePath is the local session store file.
	StorePath string `yaml:"storePath"`
	// RadiusKm is the nearby-shop search radius, clamped to [1,50] at use.
	RadiusKm float64 `yaml:"radiusKm"`

	// Background location ping schedule.
	PingDelay    time.Duration `yaml:"pingDelay"`
	PingInterval time.Duration `yaml:"pingInterval"`

	// Fixed test position used when no device location source exists.
	StaticLatitude  float64 `yaml:"staticLatitude"`
	StaticLongitude float64 `yaml:"staticLongitude"`

	// Telegram escalation channel. Empty token disables it.
	TelegramBotToken string `yaml:"telegramBotToken"`
	TelegramChatID   int64  `yaml:"telegramChatId"`
}

// Load reads fieldtrack.yml when present, then .env, then the environment.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:   "http://localhost:8090",
		StorePath:    "fieldtrack.db",
		RadiusKm:     5,
		PingDelay:    3 * time.Second,
		PingInterval: 5 * time.Minute,
	}

	if raw, err := os.ReadFile(DefaultConfigFile); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", DefaultConfigFile, err)
		}
		log.Printf("loaded %s", DefaultConfigFile)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg.APIBaseURL = readString("FIELDTRACK_API_URL", cfg.APIBaseURL)
	cfg.StorePath = readString("FIELDTRACK_STORE", cfg.StorePath)
	cfg.RadiusKm = readFloat("FIELDTRACK_RADIUS_KM", cfg.RadiusKm)
	cfg.PingDelay = readDurationSeconds("FIELDTRACK_PING_DELAY_SECONDS", cfg.PingDelay)
	cfg.PingInterval = readDurationSeconds("FIELDTRACK_PING_INTERVAL_SECONDS", cfg.PingInterval)
	cfg.StaticLatitude = readFloat("FIELDTRACK_LAT", cfg.StaticLatitude)
	cfg.StaticLongitude = readFloat("FIELDTRACK_LNG", cfg.StaticLongitude)
	cfg.TelegramBotToken = readString("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.TelegramChatID = readInt64("TELEGRAM_CHAT_ID", cfg.TelegramChatID)

	return cfg, nil
}

func readString(key, fallback string) string {
	if raw := os.Getenv(key); raw != "" {
		return raw
	}
	return fallback
}

func readFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func readInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func readDurationSeconds(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}
