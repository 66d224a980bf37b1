package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the site.
type Config struct {
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"folio"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	Port            string        `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	DatabasePath    string        `env:"DATABASE_PATH" envDefault:"data/folio.db"`
	StaticDir       string        `env:"STATIC_DIR" envDefault:"./static"`
	ImagesDir       string        `env:"IMAGES_DIR" envDefault:"./images"`

	// Contact form
	SMTPHost string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	ToEmail  string `env:"TO_EMAIL" envDefault:"hello@alexmorgan.dev"`

	// Admin dashboard
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"admin123"`

	// Chatbot
	ChatTypingBase   time.Duration `env:"CHAT_TYPING_BASE" envDefault:"600ms"`
	ChatTypingJitter time.Duration `env:"CHAT_TYPING_JITTER" envDefault:"900ms"`
	ChatMaxSessions  int           `env:"CHAT_MAX_SESSIONS" envDefault:"1024"`

	// Analytics
	TrackVisitors    bool          `env:"TRACK_VISITORS" envDefault:"true"`
	VisitorRetention time.Duration `env:"VISITOR_RETENTION" envDefault:"8760h"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	cfg.SMTPUser = strings.TrimSpace(cfg.SMTPUser)
	cfg.SMTPPass = strings.TrimSpace(cfg.SMTPPass)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	port := strings.TrimSpace(c.Port)
	if port == "" || strings.Contains(port, " ") {
		return fmt.Errorf("invalid PORT value: %q", c.Port)
	}
	if c.ChatTypingBase <= 0 {
		return fmt.Errorf("CHAT_TYPING_BASE must be positive")
	}
	if c.ChatTypingJitter < 0 {
		return fmt.Errorf("CHAT_TYPING_JITTER must be non-negative")
	}
	if c.ChatMaxSessions <= 0 {
		return fmt.Errorf("CHAT_MAX_SESSIONS must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address. PORT may be a bare port or host:port.
func (c *Config) Addr() string {
	port := strings.TrimSpace(c.Port)
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the site runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// SMTPConfigured reports whether contact mail can be sent.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPUser != "" && c.SMTPPass != ""
}
