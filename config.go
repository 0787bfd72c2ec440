package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"lg/clinic-nutrition-api/nutrition"
)

// Config holds every setting the API server reads from the environment.
type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	DBURL           string        `mapstructure:"DB_URL"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	PlanCacheTTL    time.Duration `mapstructure:"PLAN_CACHE_TTL"`
	SuggestAPIKey   string        `mapstructure:"SUGGEST_API_KEY"`
	SuggestBaseURL  string        `mapstructure:"SUGGEST_BASE_URL"`
	SuggestModel    string        `mapstructure:"SUGGEST_MODEL"`
	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL"`
	TemplatesFile   string        `mapstructure:"TEMPLATES_FILE"`
	DefaultLang     string        `mapstructure:"DEFAULT_LANG"`
}

var configKeys = []string{
	"PORT", "ENV", "DB_URL", "REDIS_URL", "PLAN_CACHE_TTL",
	"SUGGEST_API_KEY", "SUGGEST_BASE_URL", "SUGGEST_MODEL",
	"REFRESH_INTERVAL", "TEMPLATES_FILE", "DEFAULT_LANG",
}

// loadConfig reads .env (when present) into the process environment, then
// resolves typed settings with defaults applied.
func loadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("PLAN_CACHE_TTL", "1h")
	v.SetDefault("SUGGEST_BASE_URL", "https://api.openai.com")
	v.SetDefault("SUGGEST_MODEL", "gpt-4o-mini")
	v.SetDefault("REFRESH_INTERVAL", "30s")
	v.SetDefault("DEFAULT_LANG", "en")

	// Bind explicitly so Unmarshal sees keys that have no default
	for _, k := range configKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is required")
	}
	if !nutrition.SupportedLanguage(c.DefaultLang) {
		return fmt.Errorf("DEFAULT_LANG %q is not supported (use en or ar)", c.DefaultLang)
	}
	if c.PlanCacheTTL < 0 {
		return fmt.Errorf("PLAN_CACHE_TTL must not be negative, got %s", c.PlanCacheTTL)
	}
	if c.SuggestAPIKey == "" {
		log.Warn().Msg("SUGGEST_API_KEY not set; /api/meals/suggest will fail")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
