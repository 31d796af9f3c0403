package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// PublicBaseURL is the externally reachable address of this service.
	// Providers redirect the payer's browser here after checkout, so it
	// must resolve to the backend, not the frontend.
	PublicBaseURL   string `yaml:"public_base_url"`
	FrontendBaseURL string `yaml:"frontend_base_url"` // redirect target for callback results
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProviderConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"` // override for sandbox/testing
}

type PaymentConfig struct {
	// Provider selects the canonical gateway used for initiation; webhooks
	// and verification accept either configured provider.
	Provider    string         `yaml:"provider"` // flutterwave | paystack
	Namespace   string         `yaml:"namespace"` // reference prefix, e.g. "phylee"
	Currency    string         `yaml:"currency"`
	Flutterwave ProviderConfig `yaml:"flutterwave"`
	Paystack    ProviderConfig `yaml:"paystack"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type SMSConfig struct {
	APIKey   string `yaml:"api_key"`
	SenderID string `yaml:"sender_id"`
	BaseURL  string `yaml:"base_url"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type CampaignConfig struct {
	BatchSize int           `yaml:"batch_size"`
	SendDelay time.Duration `yaml:"send_delay"` // pause between messages inside a batch
	Workers   int           `yaml:"workers"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`    // how often to scan for stale pendings
	StaleAfter time.Duration `yaml:"stale_after"` // how old a pending payment must be to retry
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	Mail       MailConfig       `yaml:"mail"`
	SMS        SMSConfig        `yaml:"sms"`
	Auth       AuthConfig       `yaml:"auth"`
	Campaign   CampaignConfig   `yaml:"campaign"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Payment.Namespace == "" {
		cfg.Payment.Namespace = "phylee"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "NGN"
	}
	if cfg.Campaign.BatchSize <= 0 {
		cfg.Campaign.BatchSize = 50
	}
	if cfg.Campaign.SendDelay <= 0 {
		cfg.Campaign.SendDelay = 100 * time.Millisecond
	}
	if cfg.Campaign.Workers <= 0 {
		cfg.Campaign.Workers = 4
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}

	// Minimal validation
	if cfg.Server.PublicBaseURL == "" {
		return nil, errors.New("server.public_base_url is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	switch model.Provider(cfg.Payment.Provider) {
	case model.ProviderFlutterwave:
		if cfg.Payment.Flutterwave.SecretKey == "" {
			return nil, errors.New("payment.flutterwave.secret_key is required")
		}
	case model.ProviderPaystack:
		if cfg.Payment.Paystack.SecretKey == "" {
			return nil, errors.New("payment.paystack.secret_key is required")
		}
	default:
		return nil, fmt.Errorf("payment.provider must be %q or %q", model.ProviderFlutterwave, model.ProviderPaystack)
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
