package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`

	SessionIdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"720h"`

	// Bootstrap: create an initial API key for an owner on startup
	InitOwnerID string `envconfig:"INIT_OWNER_ID"`
	InitAPIKey  string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MEMSPACE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}
