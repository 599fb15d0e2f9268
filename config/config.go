package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

func (l LogLevel) ToSlog() slog.Level {
	switch LogLevel(strings.ToUpper(string(l))) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type LogFormat string

const (
	LogFormatPlaintext LogFormat = "plaintext"
	LogFormatJSON      LogFormat = "json"
)

type AppEnv string

const (
	AppEnvDev        AppEnv = "dev"
	AppEnvProduction AppEnv = "production"
)

type Config struct {
	App      AppConfig
	Sentry   SentryConfig
	Database DatabaseConfig
	Log      LogConfig
	Resolver ResolverConfig
	Cache    CacheConfig
}

type AppConfig struct {
	Debug           bool
	Port            uint32
	Host            string
	Name            string
	ShutdownTimeout int32 // in seconds
	Env             AppEnv
	Version         string
	RequestTimeout  uint32 // in seconds
	FallbackLang    string
}

type SentryConfig struct {
	Enabled    bool
	DSN        string
	SampleRate float64
	TracesRate float64
}

type DatabaseConfig struct {
	URL      string
	Schema   string
	MaxConns int32 // 0 keeps the pool default
}

type LogConfig struct {
	Format  LogFormat
	Level   LogLevel
	Verbose bool
}

type ResolverConfig struct {
	// Lookup endpoint template, the postal code replaces its %s verb
	URL     string
	Timeout uint32 // in seconds
	// How long not-found answers are remembered, 0 disables the miss cache
	MissTTL uint32 // in seconds
}

type CacheConfig struct {
	// Return the stored address instead of a conflict when a lookup loses the write-back race
	ReturnExisting bool
}

// Every key needs a default, viper only applies environment overrides to keys it knows about.
var defaults = map[string]any{
	"app_debug":            false,
	"app_port":             3000,
	"app_host":             "",
	"app_name":             "cepcache",
	"app_shutdowntimeout":  2,
	"app_env":              string(AppEnvProduction),
	"app_version":          "dev",
	"app_requesttimeout":   30,
	"app_fallbacklang":     "pt",
	"sentry_enabled":       false,
	"sentry_dsn":           "",
	"sentry_samplerate":    1.0,
	"sentry_tracesrate":    0.0,
	"database_url":         "",
	"database_schema":      "public",
	"database_maxconns":    0,
	"log_format":           string(LogFormatJSON),
	"log_level":            string(LogLevelInfo),
	"log_verbose":          false,
	"resolver_url":         "https://viacep.com.br/ws/%s/json/",
	"resolver_timeout":     10,
	"resolver_missttl":     0,
	"cache_returnexisting": false,
}

// Address returns the host:port the server should listen on.
func (c Config) Address() string {
	return net.JoinHostPort(c.App.Host, strconv.FormatUint(uint64(c.App.Port), 10))
}

func (c ResolverConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c ResolverConfig) MissTTLDuration() time.Duration {
	return time.Duration(c.MissTTL) * time.Second
}

func (c *Config) IsTest() bool {
	return flag.Lookup("test.v") != nil || strings.HasSuffix(os.Args[0], ".test") ||
		strings.Contains(os.Args[0], "/_test/")
}

// Load the configuration from the specified filesystem.
// A config.toml file in configFS is optional. Values from .env files and the environment take precedence
// over the file, e.g. DATABASE_URL overrides [database] url.
// You can specify additional .env files to load, by default this only checks for ".env" in the
// current working directory.
func Load(configFS fs.FS, dotenvFiles ...string) (*Config, error) {
	reader := viper.NewWithOptions(viper.KeyDelimiter("_"))
	reader.SetConfigType("toml")
	for key, value := range defaults {
		reader.SetDefault(key, value)
	}

	if configFS != nil {
		file, err := configFS.Open("config.toml")
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("No config.toml found, using defaults and environment")
		case err != nil:
			return nil, fmt.Errorf("could not open config.toml: %w", err)
		default:
			defer file.Close()
			if err = reader.ReadConfig(file); err != nil {
				return nil, fmt.Errorf("could not load the app configuration: %w", err)
			}
		}
	}

	// Environment override
	err := godotenv.Load(dotenvFiles...)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No .env file found, continuing...")
	} else if err != nil {
		return nil, fmt.Errorf(".env file found, but could not load it: %w", err)
	}
	reader.AutomaticEnv()

	var config Config
	if err := reader.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}

	if config.App.Debug && !config.IsTest() {
		slog.Warn("APP_DEBUG is turned on, do not run this mode in production!")
	}

	return &config, nil
}

// Validate checks the settings that are required to serve requests.
func (c *Config) Validate() error {
	if len(c.Database.URL) == 0 {
		return errors.New("DATABASE_URL is required")
	}
	if c.Log.Format != LogFormatJSON && c.Log.Format != LogFormatPlaintext {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
