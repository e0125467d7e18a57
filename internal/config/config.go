package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DevEnv  = "dev"
	ProdEnv = "prod"
	TestEnv = "test"
)

// Config holds everything the server and the CLI read from the environment.
// It is built once at startup and never mutated afterwards.
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	AdminToken  string
	CorsOrigin  string
	RedisURL    string
	LogLevel    string

	// AutoPublish lets clean top-level posts skip the review queue.
	AutoPublish    bool
	DailyPostQuota int

	ModerationProvider  string
	ModerationURL       string
	ModerationAPIKey    string
	ModerationModel     string
	ModerationTimeout   time.Duration
	ModerationRulesFile string
}

// LoadDotEnvs loads the .env files following the convention:
// https://github.com/bkeepers/dotenv#what-other-env-files-can-i-use
// Values already present in the environment are never overwritten.
func LoadDotEnvs() {
	env := os.Getenv("MURMUR_ENV")
	if env == "" {
		env = DevEnv
	}

	// .env.[env].local has highest priority, usually contains secrets
	godotenv.Load(".env." + env + ".local")
	if env != TestEnv {
		godotenv.Load(".env.local")
	}
	godotenv.Load(".env." + env)
	// .env usually contains shared variables
	godotenv.Load(".env")
}

// Load reads the configuration from the environment. The admin token is
// mandatory: admin routes must fail closed.
func Load() (*Config, error) {
	cfg := &Config{
		Env:                 getEnv("MURMUR_ENV", DevEnv),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", "sqlite://murmur.db"),
		AdminToken:          strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),
		CorsOrigin:          getEnv("CORS_ORIGIN", "*"),
		RedisURL:            os.Getenv("REDIS_URL"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ModerationProvider:  getEnv("MODERATION_PROVIDER", "http"),
		ModerationURL:       getEnv("MODERATION_URL", "https://api.openai.com/v1/moderations"),
		ModerationAPIKey:    os.Getenv("MODERATION_API_KEY"),
		ModerationModel:     getEnv("MODERATION_MODEL", "omni-moderation-latest"),
		ModerationRulesFile: os.Getenv("MODERATION_RULES_FILE"),
	}

	var err error
	if cfg.AutoPublish, err = getBool("AUTO_PUBLISH", false); err != nil {
		return nil, err
	}
	if cfg.DailyPostQuota, err = getInt("DAILY_POST_QUOTA", 3); err != nil {
		return nil, err
	}
	if cfg.ModerationTimeout, err = getDuration("MODERATION_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.AdminToken == "" {
		return nil, errors.New("ADMIN_API_TOKEN environment variable not set")
	}
	switch cfg.ModerationProvider {
	case "http":
		if cfg.ModerationAPIKey == "" {
			return nil, errors.New("MODERATION_API_KEY is required when MODERATION_PROVIDER=http")
		}
	case "none":
	default:
		return nil, errors.Errorf("unknown MODERATION_PROVIDER %q", cfg.ModerationProvider)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == ProdEnv
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "invalid %s", key)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	if n < 0 {
		return 0, errors.Errorf("%s must not be negative", key)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return d, nil
}
