package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Base URLs the client apps talk to. All three default to the bundled
	// demo server, which serves every surface from one process.
	AuthAPIURL      string `mapstructure:"AUTH_API_URL"`
	CaregiverAPIURL string `mapstructure:"CAREGIVER_API_URL"`
	CivilianAPIURL  string `mapstructure:"CIVILIAN_API_URL"`

	// Client-side timing knobs, in milliseconds.
	PollIntervalMs  int `mapstructure:"POLL_INTERVAL_MS"`
	SessionTickMs   int `mapstructure:"SESSION_TICK_MS"`
	MatchRetryDelay int `mapstructure:"MATCH_RETRY_DELAY_MS"`

	// Where the client apps persist their session blobs.
	SessionFile string `mapstructure:"SESSION_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8006")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "sevasetu-dev-secret")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("AUTH_API_URL", "http://localhost:8006")
	viper.SetDefault("CAREGIVER_API_URL", "http://localhost:8006")
	viper.SetDefault("CIVILIAN_API_URL", "http://localhost:8006")
	viper.SetDefault("POLL_INTERVAL_MS", 3000)
	viper.SetDefault("SESSION_TICK_MS", 1000)
	viper.SetDefault("MATCH_RETRY_DELAY_MS", 500)
	viper.SetDefault("SESSION_FILE", "sevasetu-session.json")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
