package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tatianab/game-builder/internal/errs"
)

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey   string
	Model          string
	OutputDir      string
	Addr           string
	SessionTTL     time.Duration
	BackendTimeout time.Duration
	LogLevel       string
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model", "gemini-2.0-flash")
	v.SetDefault("output_dir", "./output")
	v.SetDefault("addr", ":5000")
	v.SetDefault("session_ttl", "2h")
	v.SetDefault("backend_timeout", "5m")
	v.SetDefault("log_level", "")

	v.BindEnv("api_key", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("output_dir", "OUTPUT_DIR")
	v.BindEnv("model", "GAMEBUILDER_MODEL")
	v.BindEnv("addr", "GAMEBUILDER_ADDR")
	v.BindEnv("session_ttl", "GAMEBUILDER_SESSION_TTL")
	v.BindEnv("backend_timeout", "GAMEBUILDER_BACKEND_TIMEOUT")
	v.BindEnv("log_level", "GAMEBUILDER_LOG_LEVEL")
}

// LoadConfig loads the configuration from a .env file (if present), an
// optional gamebuilder.yaml in the working directory, and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: reading .env: %v", errs.ErrConfiguration, err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("gamebuilder")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", errs.ErrConfiguration, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	apiKey := v.GetString("api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY environment variable is not set (get one at https://aistudio.google.com/app/apikey)", errs.ErrConfiguration)
	}

	ttl, err := duration(v, "session_ttl")
	if err != nil {
		return nil, err
	}
	timeout, err := duration(v, "backend_timeout")
	if err != nil {
		return nil, err
	}

	return &Config{
		GeminiAPIKey:   apiKey,
		Model:          v.GetString("model"),
		OutputDir:      v.GetString("output_dir"),
		Addr:           v.GetString("addr"),
		SessionTTL:     ttl,
		BackendTimeout: timeout,
		LogLevel:       v.GetString("log_level"),
	}, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errs.ErrConfiguration, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", errs.ErrConfiguration, key)
	}
	return d, nil
}
