package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Core   CoreConfig   `yaml:"core"`
	Minio  MinioConfig  `yaml:"minio"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
	Lookup LookupConfig `yaml:"lookup"`
	Users  []User       `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// CoreConfig points at the insurance core API that performs extraction,
// policy persistence and client messaging.
type CoreConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type StoreConfig struct {
	MaxSessions int `yaml:"max_sessions"`
}

type LookupConfig struct {
	SearchDebounceMs int `yaml:"search_debounce_ms"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Agency   string `yaml:"agency"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	// .env is optional; secrets may also arrive through the environment
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Core.TimeoutSeconds == 0 {
		cfg.Core.TimeoutSeconds = 60
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Store.MaxSessions == 0 {
		cfg.Store.MaxSessions = 100
	}
	if cfg.Lookup.SearchDebounceMs == 0 {
		cfg.Lookup.SearchDebounceMs = 300
	}

	applyEnvOverrides(&cfg)

	GlobalConfig = &cfg
	return &cfg, nil
}

// applyEnvOverrides lets deployments supply secrets without writing them
// into the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CORE_API_URL"); v != "" {
		cfg.Core.BaseURL = v
	}
	if v := os.Getenv("CORE_API_TOKEN"); v != "" {
		cfg.Core.APIToken = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
