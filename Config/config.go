// Package Config gathers the service settings from the environment. A .env
// file in the working directory is loaded first when present; real
// environment variables win over it.
package Config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"Workforce/Models"
)

const (
	DefaultListenAddr       = ":3001"
	DefaultReminderSchedule = "0 0 9 * * *"
	DefaultReminderHour     = 9
	DefaultRequestLogFile   = "logs/requests.log"
)

type Config struct {
	ListenAddr string
	Database   Models.DatabaseConfig
	JWTSecret  string
	Location   *time.Location

	ReminderSchedule string
	// ReminderHour is the local hour from which the daily reminder may fire.
	ReminderHour int

	SlackToken     string
	SlackAppToken  string
	SlackChannelID string

	TelegramToken  string
	TelegramChatID int64

	Email Models.EmailConfig

	FirebaseCredentials string

	SeedFile       string
	Debug          bool
	RequestLogFile string
}

// Load reads .env (if any) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("could not read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, which makes it testable
// without touching the real environment.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		ListenAddr: get("LISTEN_ADDR", DefaultListenAddr),
		Database: Models.DatabaseConfig{
			Driver: get("DB_DRIVER", "sqlite"),
			DSN:    get("DB_DSN", "database.db"),
		},
		JWTSecret:           get("JWT_SECRET", ""),
		ReminderSchedule:    get("REMINDER_SCHEDULE", DefaultReminderSchedule),
		SlackToken:          get("SLACK_BOT_TOKEN", ""),
		SlackAppToken:       get("SLACK_APP_TOKEN", ""),
		SlackChannelID:      get("SLACK_CHANNEL_ID", ""),
		TelegramToken:       get("TELEGRAM_BOT_TOKEN", ""),
		FirebaseCredentials: get("FIREBASE_CREDENTIALS", ""),
		SeedFile:            get("SEED_FILE", ""),
		RequestLogFile:      get("REQUEST_LOG_FILE", DefaultRequestLogFile),
		Email: Models.EmailConfig{
			SMTPServer: get("SMTP_SERVER", ""),
			Username:   get("SMTP_USERNAME", ""),
			Password:   get("SMTP_PASSWORD", ""),
			FromEmail:  get("SMTP_FROM_EMAIL", ""),
			FromName:   get("SMTP_FROM_NAME", "Workforce"),
		},
	}

	var err error
	if cfg.Debug, err = parseBool(get("LOG_DEBUG", "false"), "LOG_DEBUG"); err != nil {
		return cfg, err
	}
	cfg.Database.Debug = cfg.Debug
	if cfg.Email.TLSEnabled, err = parseBool(get("SMTP_TLS", "true"), "SMTP_TLS"); err != nil {
		return cfg, err
	}
	if cfg.Email.SMTPPort, err = strconv.Atoi(get("SMTP_PORT", "587")); err != nil {
		return cfg, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	if cfg.ReminderHour, err = strconv.Atoi(get("REMINDER_HOUR", strconv.Itoa(DefaultReminderHour))); err != nil || cfg.ReminderHour < 0 || cfg.ReminderHour > 23 {
		return cfg, fmt.Errorf("invalid REMINDER_HOUR %q, expected 0-23", getenv("REMINDER_HOUR"))
	}
	if chat := get("TELEGRAM_CHAT_ID", ""); chat != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(chat, 10, 64); err != nil {
			return cfg, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	if cfg.Location, err = time.LoadLocation(get("TIMEZONE", "Local")); err != nil {
		return cfg, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.ReminderSchedule); err != nil {
		return cfg, fmt.Errorf("invalid REMINDER_SCHEDULE %q: %w", cfg.ReminderSchedule, err)
	}

	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET must be set")
	}
	return cfg, nil
}

func parseBool(v, key string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// SeedUser is one entry of the personnel seed file.
type SeedUser struct {
	Name                string      `yaml:"name"`
	Email               string      `yaml:"email"`
	Password            string      `yaml:"password"`
	Role                Models.Role `yaml:"role"`
	Team                string      `yaml:"team,omitempty"`
	CanManageAttendance bool        `yaml:"can_manage_attendance,omitempty"`
}

// Seed is the optional bootstrap file that creates the first accounts.
type Seed struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeed parses the personnel seed file. A missing path yields an empty
// seed.
func LoadSeed(path string) (Seed, error) {
	var seed Seed
	if path == "" {
		return seed, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("could not read seed file: %w", err)
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("could not parse seed file: %w", err)
	}
	for i, u := range seed.Users {
		if strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return seed, fmt.Errorf("seed user %d needs an email and a password", i+1)
		}
		if !u.Role.Valid() {
			return seed, fmt.Errorf("seed user %s has unknown role %q", u.Email, u.Role)
		}
	}
	return seed, nil
}
