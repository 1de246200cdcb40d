package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dkeye/Rota/internal/domain"
)

type Config struct {
	Mode       string         `mapstructure:"mode"`
	Port       int            `mapstructure:"port"`
	LogLevel   string         `mapstructure:"log_level"`
	Locale     string         `mapstructure:"locale"`
	ReadLimit  int64          `mapstructure:"read_limit"`
	PingPeriod time.Duration  `mapstructure:"ping_period"`
	FeedBuffer int            `mapstructure:"feed_buffer"`
	FeedPolicy string         `mapstructure:"feed_policy"`
	RateLimit  RateLimit      `mapstructure:"rate_limit"`
	Store      StoreConfig    `mapstructure:"store"`
	Kinds      []KindConfig   `mapstructure:"kinds"`
	Greeting   GreetingConfig `mapstructure:"greeting"`
}

// RateLimit caps commands per actor per group; Commands 0 disables it.
type RateLimit struct {
	Commands int           `mapstructure:"commands"`
	Window   time.Duration `mapstructure:"window"`
}

type StoreConfig struct {
	Driver string     `mapstructure:"driver"`
	Path   string     `mapstructure:"path"`
	Etcd   EtcdConfig `mapstructure:"etcd"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

// KindConfig declares one roster kind every group gets.
type KindConfig struct {
	Name  string `mapstructure:"name"`
	Title string `mapstructure:"title"`
	Emoji string `mapstructure:"emoji"`
}

type GreetingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Weekday  string `mapstructure:"weekday"`
	At       string `mapstructure:"at"`
	Timezone string `mapstructure:"timezone"`
}

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverEtcd   = "etcd"
)

// Load reads config/config.<CONFIG_ENV>.yaml (or --config), then ROTA_*
// environment variables, then command-line flags, each overriding the last.
func Load(args []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	fs := pflag.NewFlagSet("rota", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a YAML config file")
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("mode", "release", "gin mode: release or debug")
	fs.String("log-level", "info", "zerolog level")
	fs.String("store", DriverFile, "store driver: memory, file, sqlite or etcd")
	fs.String("store-path", "data/queues.json", "file or sqlite path")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	if *configFile != "" {
		fileName = *configFile
	}
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix("ROTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range map[string]string{
		"port":       "port",
		"mode":       "mode",
		"log-level":  "log_level",
		"store":      "store.driver",
		"store-path": "store.path",
	} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).Int("kinds", len(cfg.Kinds)).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("locale", "en")
	v.SetDefault("read_limit", 4096)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("feed_buffer", 32)
	v.SetDefault("feed_policy", "kick")
	v.SetDefault("rate_limit.commands", 20)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.path", "data/queues.json")
	v.SetDefault("store.etcd.endpoints", []string{"http://localhost:2379"})
	v.SetDefault("store.etcd.dial_timeout", "5s")
	v.SetDefault("store.etcd.prefix", "/rota")
	v.SetDefault("kinds", []map[string]any{
		{"name": "milk", "title": "🥛 Milk queue", "emoji": "🥛"},
		{"name": "coffee", "title": "☕ Coffee machine queue", "emoji": "☕"},
	})
	v.SetDefault("greeting.enabled", true)
	v.SetDefault("greeting.weekday", "monday")
	v.SetDefault("greeting.at", "08:00")
	v.SetDefault("greeting.timezone", "Europe/Minsk")
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory, DriverEtcd:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.Driver == DriverEtcd && len(c.Store.Etcd.Endpoints) == 0 {
		errs = append(errs, errors.New("store.etcd.endpoints is required"))
	}

	switch c.FeedPolicy {
	case "", "kick", "skip":
	default:
		errs = append(errs, fmt.Errorf("feed_policy %q must be kick or skip", c.FeedPolicy))
	}
	if c.RateLimit.Commands < 0 || (c.RateLimit.Commands > 0 && c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate_limit needs commands >= 0 and a positive window"))
	}

	if len(c.Kinds) == 0 {
		errs = append(errs, errors.New("at least one kind is required"))
	}
	seen := make(map[string]bool, len(c.Kinds))
	for _, k := range c.Kinds {
		if _, err := domain.ParseKind(k.Name); err != nil {
			errs = append(errs, fmt.Errorf("kind %q: %w", k.Name, err))
		}
		if seen[k.Name] {
			errs = append(errs, fmt.Errorf("kind %q declared twice", k.Name))
		}
		seen[k.Name] = true
	}

	if c.Greeting.Enabled {
		if _, err := c.Greeting.Schedule(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Schedule resolves the greeting weekday, time of day and zone.
func (g GreetingConfig) Schedule() (Schedule, error) {
	wd, ok := weekdays[strings.ToLower(g.Weekday)]
	if !ok {
		return Schedule{}, fmt.Errorf("greeting.weekday %q is not a weekday", g.Weekday)
	}
	at, err := time.Parse("15:04", g.At)
	if err != nil {
		return Schedule{}, fmt.Errorf("greeting.at %q: %w", g.At, err)
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return Schedule{}, fmt.Errorf("greeting.timezone %q: %w", g.Timezone, err)
	}
	return Schedule{Weekday: wd, Hour: at.Hour(), Minute: at.Minute(), Location: loc}, nil
}

// Schedule is a weekly point in time.
type Schedule struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}
