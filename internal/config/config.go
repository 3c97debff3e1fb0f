package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Environments     []Environment
	Interval         time.Duration
	PageSize         int
	FetchConcurrency int
	HTTPTimeout      time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	Listen           string
	Out              string
	SnapshotFile     string
	PGDSN            string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPrefix      string
	LogLevel         string
}

// Load merges config file, environment variables, and flags into Config.
// Environments can only come from the config file.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("interval", 30*time.Second)
	v.SetDefault("page-size", 1000)
	v.SetDefault("fetch-concurrency", 4)
	v.SetDefault("http-timeout", 30*time.Second)
	v.SetDefault("max-retries", 0)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("listen", ":8080")
	v.SetDefault("snapshot-file", "./data/snapshot.json")
	v.SetDefault("redis-prefix", "dashboard")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var envs []Environment
	if err := v.UnmarshalKey("environments", &envs); err != nil {
		return Config{}, fmt.Errorf("decode environments: %w", err)
	}

	cfg := Config{
		Environments:     envs,
		Interval:         v.GetDuration("interval"),
		PageSize:         v.GetInt("page-size"),
		FetchConcurrency: v.GetInt("fetch-concurrency"),
		HTTPTimeout:      v.GetDuration("http-timeout"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		Listen:           v.GetString("listen"),
		Out:              v.GetString("out"),
		SnapshotFile:     v.GetString("snapshot-file"),
		PGDSN:            v.GetString("pg-dsn"),
		RedisAddr:        v.GetString("redis-addr"),
		RedisPassword:    v.GetString("redis-password"),
		RedisDB:          v.GetInt("redis-db"),
		RedisPrefix:      v.GetString("redis-prefix"),
		LogLevel:         v.GetString("log-level"),
	}

	if err := PrepareEnvironments(cfg.Environments); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
