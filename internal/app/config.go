package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// DefaultConfigFiles are read, when present, by LoadConfig without
// arguments.
var DefaultConfigFiles = []string{"storefront.yaml", "/etc/storefront/config.yaml"}

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix) or YAML config files.
type Config struct {
	Shop    ShopConfig
	Device  DeviceConfig
	Session SessionConfig
	Mail    MailConfig
	Log     LogConfig
}

// ShopConfig describes the store as shown in order messages.
type ShopConfig struct {
	Name          string `default:"SKH Traders" usage:"Store name in order messages"`
	Currency      string `default:"Rs." usage:"Currency label printed before amounts"`
	Country       string `default:"Pakistan" usage:"Country used when the checkout form has none"`
	BusinessPhone string `default:"+923248787858" usage:"WhatsApp number receiving orders"`
	MessagingHost string `default:"wa.me" usage:"Host of the messaging link"`
	DateLayout    string `default:"1/2/2006, 3:04:05 PM" usage:"Go time layout for order dates"`
	TimeZone      string `default:"Local" usage:"IANA time zone for order dates"`
}

// DeviceConfig selects the store that outlives sessions: the cart and the
// order history.
type DeviceConfig struct {
	Driver      string `default:"file" usage:"Device store driver: file, memory or postgres"`
	Dir         string `usage:"Directory of the file driver (defaults to the user config dir)"`
	Profile     string `default:"default" usage:"Device profile name"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STOREFRONT_DEVICE_DATABASE_URL or DATABASE_URL)"`
	MaxBytes    int64  `default:"5242880" usage:"Byte budget of the file and memory drivers, 0 for unlimited"`
}

// SessionConfig selects the store that lives as long as a shopping session
// and holds the anti-forgery token.
type SessionConfig struct {
	Driver   string        `default:"file" usage:"Session store driver: file, memory or redis"`
	Dir      string        `usage:"Directory of the file driver (defaults to the temp dir)"`
	ID       string        `default:"default" usage:"Session id"`
	RedisURL string        `usage:"Redis URL (STOREFRONT_SESSION_REDIS_URL or REDIS_URL)"`
	Address  string        `usage:"Redis address, used when no URL is set"`
	Password string        `usage:"Redis password"`
	DB       int           `default:"0" usage:"Redis database"`
	TTL      time.Duration `default:"12h" usage:"Session lifetime on Redis"`
}

// MailConfig enables SMTP order confirmations when Host is set.
type MailConfig struct {
	Host     string `usage:"SMTP host, empty disables confirmations"`
	Port     int    `default:"587" usage:"SMTP port"`
	Username string `usage:"SMTP username"`
	Password string `usage:"SMTP password"`
	From     string `default:"orders@skhtraders.example" usage:"Sender address"`
	TLS      string `default:"mandatory" usage:"TLS policy: mandatory, opportunistic or none"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `default:"warn" usage:"Log level"`
	Development bool   `default:"false" usage:"Human-readable console logs"`
}

// LoadConfig loads configuration from environment variables and YAML
// files, then applies platform defaults. With no files given,
// DefaultConfigFiles are used.
func LoadConfig(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultConfigFiles
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "STOREFRONT",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
			".yml":  aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL and REDIS_URL
// variables and fills storage directories.
func (c *Config) applyPlatformDefaults() {
	if c.Device.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Device.DatabaseURL = v
		}
	}
	if c.Session.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Session.RedisURL = v
		}
	}
	if c.Device.Dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		c.Device.Dir = filepath.Join(base, "storefront", c.Device.Profile)
	}
	if c.Session.Dir == "" {
		c.Session.Dir = filepath.Join(os.TempDir(), "storefront-session", c.Session.ID)
	}
}

// Validate checks driver names and the settings each driver needs.
func (c *Config) Validate() error {
	switch c.Device.Driver {
	case DriverFile, DriverMemory:
	case DriverPostgres:
		if c.Device.DatabaseURL == "" {
			return errors.New("database URL is required for the postgres driver: set STOREFRONT_DEVICE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown device driver %q", c.Device.Driver)
	}

	switch c.Session.Driver {
	case DriverFile, DriverMemory:
	case DriverRedis:
		if c.Session.RedisURL == "" && c.Session.Address == "" {
			return errors.New("redis URL or address is required for the redis driver: set STOREFRONT_SESSION_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown session driver %q", c.Session.Driver)
	}

	if strings.TrimSpace(c.Session.ID) == "" {
		return errors.New("session id must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Shop.TimeZone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Shop.TimeZone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Shop.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "load time zone %q", c.Shop.TimeZone)
	}
	return loc, nil
}
