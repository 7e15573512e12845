// Package config provides configuration loading and validation for the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults used when neither flags nor environment provide a value.
const (
	DefaultStatePath   = "data/state.json"
	DefaultDownloadDir = "downloads"
	DefaultJSDir       = "js"
	DefaultPerPage     = 50
)

// EmailConfig holds SMTP notification credentials. The channel stays
// disabled unless User and Password are both set.
type EmailConfig struct {
	User     string `validate:"omitempty,email"`
	Password string
	To       string `validate:"omitempty,email"`
}

// Enabled reports whether the email channel can be constructed.
func (c EmailConfig) Enabled() bool {
	return c.User != "" && c.Password != ""
}

// PushPlusConfig holds the PushPlus token.
type PushPlusConfig struct {
	Token string
}

// Enabled reports whether the PushPlus channel can be constructed.
func (c PushPlusConfig) Enabled() bool {
	return c.Token != ""
}

// TelegramConfig holds Telegram bot credentials.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Enabled reports whether the Telegram channel can be constructed.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// R2Config holds Cloudflare R2 upload credentials. Domain is the bare public
// hostname objects are served from (no scheme); the uploader prepends https.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Domain          string `validate:"omitempty,hostname|fqdn"`
}

// Enabled reports whether the uploader can be constructed. Mirrors the
// uploader's own completeness check, Domain included.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" &&
		c.Bucket != "" && c.Domain != ""
}

// Config collects everything a monitoring run needs.
type Config struct {
	// Paths
	StatePath   string `validate:"required"`
	DownloadDir string `validate:"required"`
	JSDir       string `validate:"required"`

	// Crawl scope
	Categories []string `validate:"required,min=1,dive,numeric"`
	PerPage    int      `validate:"min=1,max=100"`

	// Behavior
	Days        int `validate:"min=0"`
	DryRun      bool
	NoDownload  bool
	NoNotify    bool
	ForceNotify bool

	// Credentials
	Email    EmailConfig
	PushPlus PushPlusConfig
	Telegram TelegramConfig
	R2       R2Config
}

// Default returns a configuration with defaults applied and no credentials.
func Default() *Config {
	return &Config{
		StatePath:   DefaultStatePath,
		DownloadDir: DefaultDownloadDir,
		JSDir:       DefaultJSDir,
		Categories:  []string{"13", "14", "15"},
		PerPage:     DefaultPerPage,
	}
}

// FromEnv returns a configuration with defaults applied and credentials
// read from the environment. Call godotenv.Load before this if a .env
// file should be honored.
func FromEnv() (*Config, error) {
	cfg := Default()

	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}
	if v := os.Getenv("JS_DIR"); v != "" {
		cfg.JSDir = v
	}
	if v := os.Getenv("CATEGORIES"); v != "" {
		cfg.Categories = SplitCategories(v)
	}
	if v := os.Getenv("PERPAGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PERPAGE value %q: %w", v, err)
		}
		cfg.PerPage = n
	}

	cfg.Email = EmailConfig{
		User:     os.Getenv("EMAIL_USER"),
		Password: os.Getenv("EMAIL_PASSWORD"),
		To:       os.Getenv("EMAIL_TO"),
	}
	cfg.PushPlus = PushPlusConfig{
		Token: os.Getenv("PUSHPLUS_TOKEN"),
	}
	cfg.Telegram = TelegramConfig{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}
	cfg.R2 = R2Config{
		AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		Bucket:          os.Getenv("R2_BUCKET_NAME"),
		Domain:          os.Getenv("R2_PUBLIC_DOMAIN"),
	}

	return cfg, nil
}

// SplitCategories parses a comma-separated category list, trimming
// whitespace and dropping empty entries.
func SplitCategories(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: field %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}
