package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type FilesConfig struct {
	RootDir       string `yaml:"root_dir"`
	PublicPrefix  string `yaml:"public_prefix"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
	// TTF used by the review dossier; empty means built-in Helvetica.
	FontPath string `yaml:"font_path"`
}

type TwilioConfig struct {
	AccountSID   string `yaml:"account_sid"`
	AuthToken    string `yaml:"auth_token"`
	FromNumber   string `yaml:"from_number"`
	WhatsAppFrom string `yaml:"whatsapp_from"`
	BaseURL      string `yaml:"base_url"`
}

type MobizonConfig struct {
	APIKey  string `yaml:"api_key"`
	Sender  string `yaml:"sender"`
	BaseURL string `yaml:"base_url"`
}

type SMSConfig struct {
	Provider string        `yaml:"provider"` // mock | twilio | mobizon
	Twilio   TwilioConfig  `yaml:"twilio"`
	Mobizon  MobizonConfig `yaml:"mobizon"`
}

type S3Config struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Prefix        string `yaml:"prefix"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type StorageConfig struct {
	Provider string   `yaml:"provider"` // local | s3
	S3       S3Config `yaml:"s3"`
}

type Config struct {
	Environment string `yaml:"environment"`
	PublicURL   string `yaml:"public_url"`

	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		DSN          string `yaml:"url"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"database"`

	Session struct {
		Secret string        `yaml:"secret"`
		TTL    time.Duration `yaml:"ttl"`
	} `yaml:"session"`

	Google struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"google"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`

	SMS     SMSConfig     `yaml:"sms"`
	Storage StorageConfig `yaml:"storage"`
	Files   FilesConfig   `yaml:"files"`

	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`

	Telegram struct {
		BotToken     string `yaml:"bot_token"`
		ReviewChatID int64  `yaml:"review_chat_id"`
	} `yaml:"telegram"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads .env (if any), the YAML file at path (if it exists) and then
// applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only configuration
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database url is required (DATABASE_URL)")
	}
	if len(c.Session.Secret) < 32 {
		return errors.New("session secret must be at least 32 characters (SESSION_SECRET)")
	}
	switch c.SMS.Provider {
	case "mock", "twilio", "mobizon":
	default:
		return fmt.Errorf("unknown sms provider %q", c.SMS.Provider)
	}
	switch c.Storage.Provider {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	if c.Storage.Provider == "s3" && c.Storage.S3.Bucket == "" {
		return errors.New("s3 bucket is required when storage provider is s3")
	}
	return nil
}

func applyEnv(c *Config) {
	setString(&c.Environment, "APP_ENV")
	setInt(&c.Server.Port, "PORT")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Session.Secret, "SESSION_SECRET")
	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.PublicURL, "NEXT_PUBLIC_URL")
	setString(&c.PublicURL, "PUBLIC_URL")

	setString(&c.Email.SMTPHost, "SMTP_HOST")
	setInt(&c.Email.SMTPPort, "SMTP_PORT")
	setString(&c.Email.SMTPUser, "SMTP_USER")
	setString(&c.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.Email.FromEmail, "SMTP_FROM")

	setString(&c.SMS.Provider, "SMS_PROVIDER")
	setString(&c.SMS.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setString(&c.SMS.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setString(&c.SMS.Twilio.FromNumber, "TWILIO_FROM_NUMBER")
	setString(&c.SMS.Twilio.WhatsAppFrom, "TWILIO_WHATSAPP_FROM")
	setString(&c.SMS.Mobizon.APIKey, "MOBIZON_API_KEY")
	setString(&c.SMS.Mobizon.Sender, "MOBIZON_SENDER")

	setString(&c.Storage.Provider, "STORAGE_PROVIDER")
	setString(&c.Storage.S3.Bucket, "S3_BUCKET")
	setString(&c.Storage.S3.Region, "S3_REGION")
	setString(&c.Storage.S3.PublicBaseURL, "S3_PUBLIC_BASE_URL")

	setString(&c.Files.FontPath, "PDF_FONT_PATH")

	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_REVIEW_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ReviewChatID = id
		}
	}

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
}

func applyDefaults(c *Config) {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.PublicURL == "" {
		c.PublicURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = c.Database.MaxOpenConns / 2
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 7 * 24 * time.Hour
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.SMS.Provider == "" {
		c.SMS.Provider = "mock"
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = "local"
	}
	if c.Files.RootDir == "" {
		c.Files.RootDir = "./files"
	}
	if c.Files.PublicPrefix == "" {
		c.Files.PublicPrefix = "/files"
	}
	if c.Files.MaxUploadSize <= 0 {
		c.Files.MaxUploadSize = 10 << 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		if c.Environment == "production" {
			c.Logging.Format = "json"
		} else {
			c.Logging.Format = "console"
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
