package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// LLM provider names
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
)

type HTTP struct {
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

type Auth struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"168h"`
	CookieName      string        `yaml:"cookie_name" env:"SESSION_COOKIE" env-default:"drx_session"`
	SecureCookie    bool          `yaml:"secure_cookie" env:"SESSION_COOKIE_SECURE" env-default:"false"`
	RevocationStore string        `yaml:"revocation_store" env:"REVOCATION_STORE" env-default:"memory"`
	SeedUsers       []string      `yaml:"seed_users" env:"SEED_USERS" env-separator:","`
}

type LLM struct {
	Provider         string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"mock"`
	OpenAIAPIKey     string        `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	OpenAIModel      string        `yaml:"openai_model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	ModelTemperature float32       `yaml:"model_temperature" env:"MODEL_TEMPERATURE" env-default:"0.7"`
	GeminiAPIKey     string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	GeminiModel      string        `yaml:"gemini_model" env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
	RelayTimeout     time.Duration `yaml:"relay_timeout" env:"RELAY_TIMEOUT" env-default:"60s"`
	DefaultModel     string        `yaml:"default_model" env:"DEFAULT_MODEL" env-default:"dr.x_chat"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGODB_DATABASE" env-default:"drx"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Config struct {
	HTTP      HTTP   `yaml:"http"`
	Auth      Auth   `yaml:"auth"`
	LLM       LLM    `yaml:"llm"`
	UserStore string `yaml:"user_store" env:"USER_STORE" env-default:"memory"`
	Mongo     Mongo  `yaml:"mongo"`
	Redis     Redis  `yaml:"redis"`
}

// SeedUser is one parsed SEED_USERS entry
type SeedUser struct {
	Email    string
	Password string
	Name     string
}

// Load reads .env (if present), then the optional YAML file at cfgPath, then the environment.
func Load(cfgPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgPath, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements cleanenv cannot express
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch c.LLM.Provider {
	case ProviderMock:
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}

	if c.UserStore != StoreMemory && c.UserStore != StoreMongo {
		return fmt.Errorf("unknown USER_STORE %q", c.UserStore)
	}
	if c.Auth.RevocationStore != StoreMemory && c.Auth.RevocationStore != StoreRedis {
		return fmt.Errorf("unknown REVOCATION_STORE %q", c.Auth.RevocationStore)
	}
	if c.LLM.RelayTimeout <= 0 {
		return fmt.Errorf("RELAY_TIMEOUT must be positive, got %s", c.LLM.RelayTimeout)
	}

	_, err := c.Auth.ParseSeedUsers()
	return err
}

// ParseSeedUsers parses "email:password[:name]" entries
func (a Auth) ParseSeedUsers() ([]SeedUser, error) {
	users := make([]SeedUser, 0, len(a.SeedUsers))
	for _, raw := range a.SeedUsers {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid seed user %q, expected email:password[:name]", raw)
		}
		user := SeedUser{Email: parts[0], Password: parts[1]}
		if len(parts) == 3 {
			user.Name = parts[2]
		}
		users = append(users, user)
	}
	return users, nil
}
