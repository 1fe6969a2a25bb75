package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	envPrefix           = "USERNOTES"
	defaultServer       = ":8080"
	defaultDriver       = "sqlite"
	defaultDsn          = "./db/usernotes.sqlite"
	defaultTitle        = "Forum"
	defaultLanguage     = "en"
	defaultTranslations = "./translations"
	defaultAssets       = "./public_html"
	defaultUserHeader   = "X-Forum-User"
	defaultTokenTTL     = 24 * time.Hour
	defaultLogLevel     = "info"
)

var validate = validator.New()

type Config struct {
	Server       string        `validate:"required"`
	Driver       string        `validate:"oneof=sqlite postgres pebble memory"`
	Dsn          string        `validate:"required_unless=Driver memory"`
	SiteURL      string        `validate:"omitempty,url"`
	Title        string        `validate:"required"`
	Language     string        `validate:"required"`
	Translations string
	Assets       string        `validate:"required"`
	UserHeader   string        `validate:"required"`
	TokenSecret  string        `validate:"required,min=16"`
	TokenTTL     time.Duration `validate:"gt=0"`
	LogLevel     string        `validate:"omitempty,oneof=debug info warn warning error"`
}

func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and USERNOTES_ environment bindings.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", defaultServer)
	v.SetDefault("database.driver", defaultDriver)
	v.SetDefault("database.dsn", defaultDsn)
	v.SetDefault("site.title", defaultTitle)
	v.SetDefault("site.language", defaultLanguage)
	v.SetDefault("site.translations", defaultTranslations)
	v.SetDefault("site.assets", defaultAssets)
	v.SetDefault("auth.user_header", defaultUserHeader)
	v.SetDefault("token.ttl", defaultTokenTTL)
	v.SetDefault("log.level", defaultLogLevel)
}

// Load reads the configuration and validates everything except the token secret,
// which only the server needs.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Server:       v.GetString("server.address"),
		Driver:       strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		Dsn:          v.GetString("database.dsn"),
		SiteURL:      strings.TrimRight(v.GetString("site.url"), "/"),
		Title:        v.GetString("site.title"),
		Language:     v.GetString("site.language"),
		Translations: v.GetString("site.translations"),
		Assets:       v.GetString("site.assets"),
		UserHeader:   v.GetString("auth.user_header"),
		TokenSecret:  v.GetString("token.secret"),
		TokenTTL:     v.GetDuration("token.ttl"),
		LogLevel:     v.GetString("log.level"),
	}
	if err := validate.StructExcept(c, "TokenSecret"); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func (c *Config) validateServer() error {
	if err := validate.StructPartial(c, "TokenSecret"); err != nil {
		return fmt.Errorf("token.secret must be at least 16 characters: %w", err)
	}
	return nil
}
