// Package config loads runtime settings from environment variables via Viper.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting the service reads at startup.
type Config struct {
	AppPort          string
	DatabaseDSN      string // Postgres DSN; empty means a local SQLite file
	SQLitePath       string
	JWTSecret        string
	TokenTTL         time.Duration
	RabbitMQURL      string // empty disables product event publishing
	ImageStoreURL    string
	ImageStoreKey    string
	ImageStoreFolder string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("SQLITE_PATH", "lapak.db")
	viper.SetDefault("JWT_SECRET", "change-me")
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("IMAGE_STORE_URL", "http://localhost:9000")
	viper.SetDefault("IMAGE_STORE_FOLDER", "products")
	viper.AutomaticEnv() // Load environment variables

	return &Config{
		AppPort:          viper.GetString("APP_PORT"),
		DatabaseDSN:      viper.GetString("DATABASE_DSN"),
		SQLitePath:       viper.GetString("SQLITE_PATH"),
		JWTSecret:        viper.GetString("JWT_SECRET"),
		TokenTTL:         time.Duration(viper.GetInt("TOKEN_TTL_HOURS")) * time.Hour,
		RabbitMQURL:      viper.GetString("RABBITMQ_URL"),
		ImageStoreURL:    viper.GetString("IMAGE_STORE_URL"),
		ImageStoreKey:    viper.GetString("IMAGE_STORE_KEY"),
		ImageStoreFolder: viper.GetString("IMAGE_STORE_FOLDER"),
	}
}
