package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env    string       `yaml:"env"` // "dev" or "prod"
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
	CMS    CMSConfig    `yaml:"cms"`
	Cache  CacheConfig  `yaml:"cache"`
	Mail   MailConfig   `yaml:"mail"`
	Forms  FormsConfig  `yaml:"forms"`
	Review ReviewConfig `yaml:"review"`
	Events EventsConfig `yaml:"events"`
	Sheets SheetsConfig `yaml:"sheets"`
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the content store backend: "cms" or "sqlite".
type StoreConfig struct {
	Backend      string `yaml:"backend" env:"INTAKE_STORE_BACKEND" validate:"oneof=cms sqlite"`
	DatabasePath string `yaml:"database_path" env:"INTAKE_DATABASE_PATH"`
	SeedPath     string `yaml:"seed_path" env:"INTAKE_STORE_SEED_PATH"`
}

type CMSConfig struct {
	ProjectID  string `yaml:"project_id" env:"INTAKE_CMS_PROJECT_ID" validate:"required"`
	Dataset    string `yaml:"dataset" env:"INTAKE_CMS_DATASET" validate:"required"`
	APIVersion string `yaml:"api_version" env:"INTAKE_CMS_API_VERSION" validate:"required"`
	UseCDN     bool   `yaml:"use_cdn"`
	ReadToken  string `yaml:"read_token"`
	WriteToken string `yaml:"write_token" env:"INTAKE_CMS_WRITE_TOKEN" validate:"required"`
	Timeout    string `yaml:"timeout"`
}

type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTL           string `yaml:"ttl"`
}

type MailConfig struct {
	APIKey               string `yaml:"api_key" env:"INTAKE_MAIL_API_KEY" validate:"required"`
	BaseURL              string `yaml:"base_url"`
	From                 string `yaml:"from" env:"INTAKE_MAIL_FROM" validate:"required,looseemail"`
	To                   string `yaml:"to" env:"INTAKE_MAIL_TO" validate:"required,looseemail"`
	Timeout              string `yaml:"timeout"`
	ConfirmRegistrations bool   `yaml:"confirm_registrations"`
}

type FormsConfig struct {
	RateLimit    int   `yaml:"rate_limit"` // submissions per IP per hour
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// ReviewConfig enables the back-office API when TokenHash (bcrypt) is set.
type ReviewConfig struct {
	TokenHash string `yaml:"token_hash"`
}

type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type SheetsConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

// Duration parses s, falling back to def when s is empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func Load() *Config {
	return LoadFile("config.yaml")
}

// LoadFile builds the configuration from defaults, the YAML file at path
// (if present) and environment overrides, in that order of precedence.
func LoadFile(path string) *Config {
	env := os.Getenv("INTAKE_ENV")
	if env == "" {
		env = "dev" // Default to dev for safety
	}

	cfg := &Config{
		Env:    env,
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Backend: "cms", DatabasePath: "_workspace/db/intake.db", SeedPath: "forms.yaml"},
		CMS:    CMSConfig{APIVersion: "2024-01-01", Dataset: "production", UseCDN: true, Timeout: "10s"},
		Cache:  CacheConfig{TTL: "5m"},
		Mail:   MailConfig{BaseURL: "https://api.resend.com", Timeout: "10s"},
		Forms:  FormsConfig{RateLimit: 20, MaxBodyBytes: 1 << 20},
		Events: EventsConfig{Topic: "submissions.created"},
		Sheets: SheetsConfig{SheetName: "Submissions"},
	}

	data, err := os.ReadFile(path)
	if err == nil {
		yaml.Unmarshal(data, cfg)
	}

	// Environment overrides (highest priority)
	if v := os.Getenv("INTAKE_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("INTAKE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("INTAKE_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("INTAKE_DATABASE_PATH"); v != "" {
		cfg.Store.DatabasePath = v
	}
	if v := os.Getenv("INTAKE_STORE_SEED_PATH"); v != "" {
		cfg.Store.SeedPath = v
	}
	if v := os.Getenv("INTAKE_CMS_PROJECT_ID"); v != "" {
		cfg.CMS.ProjectID = v
	}
	if v := os.Getenv("INTAKE_CMS_DATASET"); v != "" {
		cfg.CMS.Dataset = v
	}
	if v := os.Getenv("INTAKE_CMS_API_VERSION"); v != "" {
		cfg.CMS.APIVersion = v
	}
	if v := os.Getenv("INTAKE_CMS_READ_TOKEN"); v != "" {
		cfg.CMS.ReadToken = v
	}
	if v := os.Getenv("INTAKE_CMS_WRITE_TOKEN"); v != "" {
		cfg.CMS.WriteToken = v
	}
	if v := os.Getenv("INTAKE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" && cfg.Mail.APIKey == "" {
		cfg.Mail.APIKey = v
	}
	if v := os.Getenv("INTAKE_MAIL_API_KEY"); v != "" {
		cfg.Mail.APIKey = v
	}
	if v := os.Getenv("INTAKE_MAIL_FROM"); v != "" {
		cfg.Mail.From = v
	}
	if v := os.Getenv("INTAKE_MAIL_TO"); v != "" {
		cfg.Mail.To = v
	}
	if v := os.Getenv("INTAKE_FORMS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Forms.RateLimit = n
		}
	}
	if v := os.Getenv("INTAKE_REVIEW_TOKEN_HASH"); v != "" {
		cfg.Review.TokenHash = v
	}
	if v := os.Getenv("INTAKE_KAFKA_BROKERS"); v != "" {
		cfg.Events.Brokers = splitList(v)
	}
	if v := os.Getenv("INTAKE_SHEETS_CREDENTIALS"); v != "" {
		cfg.Sheets.CredentialsPath = v
	}
	if v := os.Getenv("INTAKE_SHEETS_SPREADSHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}

	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
