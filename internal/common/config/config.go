package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Supabase struct {
		ProjectURL string `env:"SUPABASE_URL,required"`
		APIKey     string `env:"SUPABASE_KEY,required"`

		// HMAC secret used to verify access tokens issued by the auth service.
		JWTSecret string `env:"SUPABASE_JWT_SECRET" envDefault:""`

		HTTPTimeout time.Duration `env:"SUPABASE_HTTP_TIMEOUT" envDefault:"10s"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`

		ProfileTTL time.Duration `env:"REDIS_PROFILE_TTL" envDefault:"5m"`
	}

	Session struct {
		// Profile reads retry transient "no row" responses because row
		// creation can lag session creation with magic-link sign-in.
		FetchMaxAttempts int           `env:"PROFILE_FETCH_MAX_ATTEMPTS" envDefault:"5"`
		FetchBaseDelay   time.Duration `env:"PROFILE_FETCH_BASE_DELAY" envDefault:"750ms"`

		// Upper bound on how long the session controller may report
		// loading=true before the UI is unblocked.
		LoadingTimeout time.Duration `env:"SESSION_LOADING_TIMEOUT" envDefault:"5s"`
	}
}

func Load() (*Config, error) {
	// A missing .env file is fine: in production the variables are set
	// directly in the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
