package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DevSecretKey is used for signing sessions and CSRF tokens when no secret is configured.
const DevSecretKey = "fyyur-development-secret"

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		Driver          string        `mapstructure:"driver"`
		DSN             string        `mapstructure:"dsn"`
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	} `mapstructure:"database"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Security struct {
		SecretKey   string `mapstructure:"secret_key"`
		CSRFEnabled bool   `mapstructure:"csrf_enabled"`
	} `mapstructure:"security"`
	Cache struct {
		Driver    string        `mapstructure:"driver"`
		RedisAddr string        `mapstructure:"redis_addr"`
		TTL       time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

var keys = []string{
	"app.env",
	"server.port",
	"database.driver",
	"database.dsn",
	"database.max_open_conns",
	"database.max_idle_conns",
	"database.conn_max_lifetime",
	"log.level",
	"security.secret_key",
	"security.csrf_enabled",
	"cache.driver",
	"cache.redis_addr",
	"cache.ttl",
	"metrics.enabled",
}

// Load reads .env, the environment (FYYUR_ prefix) and an optional config.yaml.
// configFile overrides the config.yaml search when non-empty.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}

	v := viper.New()
	v.SetEnvPrefix("FYYUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		log.Debug().Msg("config.yaml not found, using environment only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("server.port", "5000")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "fyyur.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("security.secret_key", DevSecretKey)
	v.SetDefault("security.csrf_enabled", true)
	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("metrics.enabled", true)
}

// IsProduction reports whether app.env is "production"
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Cache.Driver)
	}
	if c.IsProduction() && c.Security.SecretKey == DevSecretKey {
		return errors.New("security.secret_key must be set in production (FYYUR_SECURITY_SECRET_KEY)")
	}
	return nil
}
