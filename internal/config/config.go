// Package config loads the mailprobe command configuration from a YAML
// file, an optional ".local" override next to it, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/optimode/mailprobe"
)

// DefaultPath is used when the CONFIG variable is not set.
const DefaultPath = "./config/mailprobe.yaml"

// DotEnvFile is loaded into the environment before anything else.
// Variables already set in the environment win.
const DotEnvFile = ".env"

// ErrInvalid is returned when a loaded value has the wrong format.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Verifier VerifierConfig `yaml:"verifier"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type VerifierConfig struct {
	SenderIdentity string        `yaml:"sender_identity" env:"MAILPROBE_SENDER" env-description:"address sent with MAIL FROM" validate:"omitempty,email"`
	ClientHeloName string        `yaml:"helo_name" env:"MAILPROBE_HELO" env-description:"name sent with HELO" validate:"omitempty,hostname_rfc1123"`
	Timeout        time.Duration `yaml:"timeout" env:"MAILPROBE_TIMEOUT" env-default:"10s" validate:"gte=0"`
	Port           string        `yaml:"port" env:"MAILPROBE_PORT" env-default:"25" validate:"omitempty,port"`
	CacheTTL       time.Duration `yaml:"cache_ttl" env:"MAILPROBE_CACHE_TTL" env-default:"5m" validate:"gte=0"`
	Nameserver     string        `yaml:"nameserver" env:"MAILPROBE_NAMESERVER" env-description:"query this nameserver instead of the system resolver" validate:"omitempty,hostname_port|ip"`
	Proxy          string        `yaml:"proxy" env:"MAILPROBE_PROXY" env-description:"socks5:// URL for probe connections" validate:"omitempty,url"`
	Workers        int           `yaml:"workers" env:"MAILPROBE_WORKERS" env-default:"5" validate:"gte=0,lte=1000"`
}

type TelegramConfig struct {
	Token     string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID    string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	APIURL    string `yaml:"api_url" env:"TELEGRAM_API_URL" env-default:"https://api.telegram.org" validate:"url"`
	ParseMode string `yaml:"parse_mode" env:"TELEGRAM_PARSE_MODE" env-description:"HTML, Markdown or MarkdownV2; empty sends plain text" validate:"omitempty,oneof=HTML Markdown MarkdownV2"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != ""
}

// Engine converts the verifier section into the engine configuration.
func (v VerifierConfig) Engine() mailprobe.Config {
	return mailprobe.Config{
		SenderIdentity: v.SenderIdentity,
		ClientHeloName: v.ClientHeloName,
		Timeout:        v.Timeout,
		Port:           v.Port,
		CacheTTL:       v.CacheTTL,
	}
}

// Load reads the file named by CONFIG, or DefaultPath. A missing default
// file is not an error: the configuration then comes from the environment.
func Load() (*Config, error) {
	if file, ok := os.LookupEnv("CONFIG"); ok {
		return load(file, true, DotEnvFile)
	}
	return load(DefaultPath, false, DotEnvFile)
}

// LoadFile reads the given file, which must exist, after loading the
// dotenv files that exist among dotenv.
func LoadFile(file string, dotenv ...string) (*Config, error) {
	return load(file, true, dotenv...)
}

func load(file string, required bool, dotenv ...string) (*Config, error) {
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "load %s", f)
		}
	}

	cfg := &Config{}
	_, err := os.Stat(file)
	switch {
	case err == nil:
	case !required && errors.Is(err, os.ErrNotExist):
		logrus.Debugf("config file %s not found, using environment", file)
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, errors.Wrap(err, "config error")
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	default:
		return nil, errors.Wrap(err, "config file")
	}

	if err := cleanenv.ReadConfig(file, cfg); err != nil {
		return nil, errors.Wrap(err, "config error")
	}
	local := file[:len(file)-len(path.Ext(file))] + ".local" + path.Ext(file)
	if _, err := os.Stat(local); err == nil {
		if err := cleanenv.ReadConfig(local, cfg); err != nil {
			return nil, errors.Wrap(err, "config error")
		}
	}

	// the local file must not override the environment
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "config error")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field formats. Every problem is reported, separated
// by commas.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "config validation")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Namespace())
		switch fe.Tag() {
		case "gte":
			msgs = append(msgs, field+" must be at least "+fe.Param())
		case "lte":
			msgs = append(msgs, field+" must be at most "+fe.Param())
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.Wrap(ErrInvalid, strings.Join(msgs, ", "))
}

// Usage returns the list of recognised environment variables.
func Usage() string {
	s, _ := cleanenv.GetDescription(&Config{}, nil)
	return s
}
