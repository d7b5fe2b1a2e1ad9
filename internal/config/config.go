package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Addr        string `mapstructure:"http_addr"`
	DBDriver    string `mapstructure:"db_driver"`
	DatabaseURL string `mapstructure:"database_url"`
	// Empty disables the redis event bus; changes are then dispatched in-process
	RedisURL           string        `mapstructure:"redis_url"`
	CORSOrigins        []string      `mapstructure:"cors_origins"`
	ActivationDistance float64       `mapstructure:"drag_activation_distance"`
	SyncTimeout        time.Duration `mapstructure:"sync_timeout"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("database_url", "host=localhost user=postgres password=postgres dbname=jobtracker port=5432 sslmode=disable")
	v.SetDefault("redis_url", "")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("drag_activation_distance", 8.0)
	v.SetDefault("sync_timeout", "10s")
}

// Load reads .env (if present), then the optional JOBTRACKER_CONFIG file,
// then the environment. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if file := v.GetString("jobtracker_config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	cfg := Config{
		Addr:               v.GetString("http_addr"),
		DBDriver:           strings.ToLower(v.GetString("db_driver")),
		DatabaseURL:        v.GetString("database_url"),
		RedisURL:           v.GetString("redis_url"),
		CORSOrigins:        splitOrigins(v.GetString("cors_origins")),
		ActivationDistance: v.GetFloat64("drag_activation_distance"),
		SyncTimeout:        v.GetDuration("sync_timeout"),
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return Config{}, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver)
	}
	if cfg.ActivationDistance <= 0 {
		return Config{}, fmt.Errorf("DRAG_ACTIVATION_DISTANCE must be positive, got %v", cfg.ActivationDistance)
	}
	if cfg.SyncTimeout <= 0 {
		return Config{}, fmt.Errorf("SYNC_TIMEOUT must be positive, got %s", cfg.SyncTimeout)
	}
	return cfg, nil
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// AllowAllOrigins reports whether CORS is wide open.
func (c Config) AllowAllOrigins() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
