package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingConfig is returned when a command needs a value that is not set.
var ErrMissingConfig = errors.New("missing required configuration")

const (
	DefaultAppURL            = "http://localhost:4001"
	DefaultUnsubscribeSecret = "matcha-stock-default-secret"
	DefaultFromEmail         = "notifications@your-domain.com"
)

// Config holds all application configuration.
type Config struct {
	// General
	DatabaseURL string `mapstructure:"database_url"`
	LogLevel    string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string `mapstructure:"log_format" validate:"omitempty,oneof=json console"`

	// Scraping
	RespectRobots  bool          `mapstructure:"respect_robots"`
	DelayProfile   string        `mapstructure:"delay_profile" validate:"oneof=cautious normal aggressive fixed"`
	RatePerSecond  float64       `mapstructure:"rate_per_second" validate:"gt=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"min=1"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ProxyFile      string        `mapstructure:"proxy_file"`
	BrowserBin     string        `mapstructure:"browser_bin"`
	BrowserRemote  string        `mapstructure:"browser_remote" validate:"omitempty,url"` // rod launcher URL
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
	MatchaJPURL    string        `mapstructure:"matchajp_url" validate:"omitempty,url"`
	MatchaJPPages  int           `mapstructure:"matchajp_pages" validate:"min=1,max=50"`

	// Notifications
	Lookback          time.Duration `mapstructure:"lookback"`
	ResendAPIKey      string        `mapstructure:"resend_api_key"`
	FromEmail         string        `mapstructure:"from_email" validate:"omitempty,email"`
	AppURL            string        `mapstructure:"app_url" validate:"omitempty,url"`
	UnsubscribeSecret string        `mapstructure:"unsubscribe_secret"`
	TwilioAccountSID  string        `mapstructure:"twilio_account_sid"`
	TwilioAuthToken   string        `mapstructure:"twilio_auth_token"`
	TwilioPhoneNumber string        `mapstructure:"twilio_phone_number" validate:"omitempty,e164"`

	// Dedupe, off unless Dedupe is set
	Dedupe        bool          `mapstructure:"dedupe"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	DedupeTTL     time.Duration `mapstructure:"dedupe_ttl"`

	// HTTP server
	HTTPPort string `mapstructure:"http_port" validate:"omitempty,numeric"`
	APIKey   string `mapstructure:"api_key"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "json",
		RespectRobots:     true,
		DelayProfile:      "normal",
		RatePerSecond:     1.0,
		RateBurst:         1,
		RequestTimeout:    30 * time.Second,
		BrowserTimeout:    60 * time.Second,
		MatchaJPPages:     5,
		Lookback:          time.Hour,
		FromEmail:         DefaultFromEmail,
		AppURL:            DefaultAppURL,
		UnsubscribeSecret: DefaultUnsubscribeSecret,
		RedisAddr:         "localhost:6379",
		DedupeTTL:         7 * 24 * time.Hour,
		HTTPPort:          "8080",
	}
}

// LoadFile overlays the YAML (or any viper-supported) file at path.
// Keys absent from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads .env file (if present) then overrides config from environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.LogLevel, "MATCHA_LOG_LEVEL")
	setString(&c.LogFormat, "MATCHA_LOG_FORMAT")

	setString(&c.DelayProfile, "MATCHA_DELAY_PROFILE")
	if v := os.Getenv("MATCHA_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
	setInt(&c.RateBurst, "MATCHA_RATE_BURST")
	setDuration(&c.RequestTimeout, "MATCHA_REQUEST_TIMEOUT")
	setString(&c.ProxyFile, "MATCHA_PROXIES")
	setString(&c.BrowserBin, "MATCHA_BROWSER_BIN")
	setString(&c.BrowserRemote, "MATCHA_BROWSER_REMOTE")
	setDuration(&c.BrowserTimeout, "MATCHA_BROWSER_TIMEOUT")
	setString(&c.MatchaJPURL, "MATCHA_MATCHAJP_URL")
	setInt(&c.MatchaJPPages, "MATCHA_MATCHAJP_PAGES")
	if v := os.Getenv("MATCHA_RESPECT_ROBOTS"); v == "false" {
		c.RespectRobots = false
	}

	setDuration(&c.Lookback, "MATCHA_LOOKBACK")
	setString(&c.ResendAPIKey, "RESEND_API_KEY")
	setString(&c.FromEmail, "FROM_EMAIL")
	setString(&c.AppURL, "NEXT_PUBLIC_APP_URL")
	setString(&c.UnsubscribeSecret, "UNSUBSCRIBE_SECRET")
	setString(&c.TwilioAccountSID, "TWILIO_ACCOUNT_SID")
	setString(&c.TwilioAuthToken, "TWILIO_AUTH_TOKEN")
	setString(&c.TwilioPhoneNumber, "TWILIO_PHONE_NUMBER")

	if v := os.Getenv("MATCHA_DEDUPE"); v == "true" {
		c.Dedupe = true
	}
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.RedisDB, "REDIS_DB")
	setDuration(&c.DedupeTTL, "MATCHA_DEDUPE_TTL")

	setString(&c.HTTPPort, "PORT")
	setString(&c.APIKey, "MATCHA_API_KEY")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the value ranges of the loaded configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// ValidateContact checks a subscriber email and E.164 phone number.
// Empty values are allowed.
func ValidateContact(email, phone string) error {
	if err := validate.Var(email, "omitempty,email"); err != nil {
		return fmt.Errorf("invalid email %q", email)
	}
	if err := validate.Var(phone, "omitempty,e164"); err != nil {
		return fmt.Errorf("invalid phone number %q, want E.164 such as +15551234567", phone)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "url", "email", "e164", "numeric":
		return fmt.Sprintf("%s is not a valid %s: %q", fe.Field(), fe.Tag(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// ValidateDatabase checks what every command touching the store needs.
func (c *Config) ValidateDatabase() error {
	return required(map[string]string{"DATABASE_URL": c.DatabaseURL})
}

func (c *Config) ValidateEmail() error {
	return required(map[string]string{
		"DATABASE_URL":       c.DatabaseURL,
		"RESEND_API_KEY":     c.ResendAPIKey,
		"FROM_EMAIL":         c.FromEmail,
		"UNSUBSCRIBE_SECRET": c.UnsubscribeSecret,
	})
}

func (c *Config) ValidateSMS() error {
	return required(map[string]string{
		"DATABASE_URL":        c.DatabaseURL,
		"TWILIO_ACCOUNT_SID":  c.TwilioAccountSID,
		"TWILIO_AUTH_TOKEN":   c.TwilioAuthToken,
		"TWILIO_PHONE_NUMBER": c.TwilioPhoneNumber,
	})
}

func required(values map[string]string) error {
	var missing []string
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
