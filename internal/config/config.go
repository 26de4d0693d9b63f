package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	TempleAPIURL   string `env:"TEMPLE_API_URL,required,notEmpty"`
	TempleAPIToken string `env:"TEMPLE_API_TOKEN"`

	Port           string `env:"SERVER_PORT" envDefault:"8080"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	ReferenceCacheTTL time.Duration `env:"REFERENCE_CACHE_TTL" envDefault:"5m"`
	BackendTimeout    time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	BackendRPS        float64       `env:"BACKEND_RPS" envDefault:"20"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
