package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `yaml:"env" env:"RJ_ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"RJ_LOG_LEVEL" env-default:"info"`

	// BaseURL is the externally visible origin used in email links.
	BaseURL string `yaml:"base_url" env:"RJ_BASE_URL" env-default:"http://localhost:8080"`

	// SecretKey is the root of all token signing keys. Rotating it
	// invalidates every outstanding verification and reset link.
	SecretKey string `yaml:"secret_key" env:"RJ_SECRET_KEY" env-required:"true"`

	HTTPServer `yaml:"http_server"`
	DB         `yaml:"db"`
	Email      `yaml:"email"`
	S3         `yaml:"s3"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"RJ_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"RJ_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"RJ_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"RJ_IDLE_TIMEOUT" env-default:"120s"`
}

type DB struct {
	Path string `yaml:"path" env:"RJ_DB_PATH" env-default:"readingjourney.db"`
}

type Email struct {
	PostmarkToken string `yaml:"postmark_token" env:"RJ_POSTMARK_TOKEN"`
	From          string `yaml:"from" env:"RJ_EMAIL_FROM"`
}

type S3 struct {
	Endpoint      string `yaml:"endpoint" env:"RJ_S3_ENDPOINT"`
	Region        string `yaml:"region" env:"RJ_S3_REGION" env-default:"us-east-1"`
	Bucket        string `yaml:"bucket" env:"RJ_S3_BUCKET"`
	AccessKey     string `yaml:"access_key" env:"RJ_S3_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" env:"RJ_S3_SECRET_KEY"`
	PublicBaseURL string `yaml:"public_base_url" env:"RJ_S3_PUBLIC_BASE_URL"`
}

// MustLoad reads configuration from the optional YAML file at configPath
// (empty means environment only) and panics on failure. Meant for use from
// main only.
func MustLoad(configPath string) *Config {
	config, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return config
}

func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		if err := cleanenv.ReadConfig(configPath, &config); err != nil {
			return nil, err
		}
		return &config, nil
	}

	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
