// Package config loads settings from config.yaml, a .env file, REEMBOLSO_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const envPrefix = "REEMBOLSO"

type Config struct {
	DBPath    string       `mapstructure:"db_path"`
	CompanyID string       `mapstructure:"company_id"`
	LogLevel  string       `mapstructure:"log_level"`
	Server    ServerConfig `mapstructure:"server"`
	CSV       CSVConfig    `mapstructure:"csv"`
	Import    ImportConfig `mapstructure:"import"`
	YNAB      YNABConfig   `mapstructure:"ynab"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type CSVConfig struct {
	Profile string `mapstructure:"profile"`
}

type ImportConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type YNABConfig struct {
	TokenEnv string `mapstructure:"token_env"`
	BudgetID string `mapstructure:"budget_id"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":          "db_path",
	"company":     "company_id",
	"log-level":   "log_level",
	"addr":        "server.addr",
	"profile":     "csv.profile",
	"concurrency": "import.concurrency",
	"budget":      "ynab.budget_id",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "reembolso.db")
	v.SetDefault("company_id", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("csv.profile", "auto")
	v.SetDefault("import.concurrency", 8)
	v.SetDefault("ynab.token_env", "YNAB_TOKEN")
	v.SetDefault("ynab.budget_id", "")
}

// Build loads the configuration. cfgFile may be empty, in which case
// config.yaml is looked up in the working directory and is optional. flags
// may be nil; only the flags it defines are bound.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	return &cfg, nil
}

// Level is the configured log level, info when unparseable.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// YNABToken reads the token from the configured environment variable.
func (c *Config) YNABToken() (string, error) {
	token := os.Getenv(c.YNAB.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("environment variable %s is not set", c.YNAB.TokenEnv)
	}
	return token, nil
}
