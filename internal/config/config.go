package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName names the config file and the XDG directories.
	AppName = "mindfulday"

	// EnvPrefix prefixes every environment variable except the API keys.
	EnvPrefix = "MINDFULDAY"

	DefaultModel          = "gemini-1.5-flash"
	DefaultRequestTimeout = 30 * time.Second
	DefaultStartHour      = 8
	DefaultEndHour        = 22
	DefaultWeatherBaseURL = "http://api.weatherapi.com/v1"
	DefaultTimezone       = "Local"
)

// API key variables, read verbatim without the prefix.
const (
	EnvWeatherAPIKey = "WEATHERAPI_API_KEY"
	EnvGenAIAPIKey   = "GENAI_API_KEY"
)

// Config holds everything a run needs. Components receive the values they
// use from here and never read the environment themselves.
type Config struct {
	City      string `mapstructure:"city"`
	Recipient string `mapstructure:"recipient"`
	Timezone  string `mapstructure:"timezone"`

	TokenDir         string `mapstructure:"token_dir"`
	ClientSecretFile string `mapstructure:"client_secret_file"`

	WeatherAPIKey  string `mapstructure:"weather_api_key"`
	WeatherBaseURL string `mapstructure:"weather_base_url"`

	GenAIAPIKey string `mapstructure:"genai_api_key"`
	GenAIModel  string `mapstructure:"genai_model"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DayStartHour   int           `mapstructure:"day_start_hour"`
	DayEndHour     int           `mapstructure:"day_end_hour"`

	Log LogConfig `mapstructure:"log"`

	// ConfigFile is the file the values were read from, empty when none was found.
	ConfigFile string `mapstructure:"-"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ConfigFile is an explicit config file. It must exist when set.
	ConfigFile string

	// EnvFile is loaded into the environment before anything else.
	// Defaults to ".env"; a missing file is ignored.
	EnvFile string
}

// Load reads the configuration from, in increasing priority: defaults, the
// config file, and the environment (including the .env file, which never
// overrides variables that are already set).
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := newViper()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, AppName))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.applyDerivedDefaults()

	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("city", "")
	v.SetDefault("recipient", "")
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("token_dir", "")
	v.SetDefault("client_secret_file", "")
	v.SetDefault("weather_api_key", "")
	v.SetDefault("weather_base_url", DefaultWeatherBaseURL)
	v.SetDefault("genai_api_key", "")
	v.SetDefault("genai_model", DefaultModel)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("day_start_hour", DefaultStartHour)
	v.SetDefault("day_end_hour", DefaultEndHour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The API keys keep the names the tool has always used; the prefixed
	// names work too.
	_ = v.BindEnv("weather_api_key", EnvWeatherAPIKey, EnvPrefix+"_WEATHER_API_KEY")
	_ = v.BindEnv("genai_api_key", EnvGenAIAPIKey, EnvPrefix+"_GENAI_API_KEY")

	return v
}

func (c *Config) applyDerivedDefaults() {
	c.City = strings.TrimSpace(c.City)
	c.Recipient = strings.TrimSpace(c.Recipient)
	if c.TokenDir == "" {
		c.TokenDir = DefaultTokenDir()
	}
	if c.ClientSecretFile == "" {
		c.ClientSecretFile = filepath.Join(c.TokenDir, "secret.json")
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
}

// DefaultTokenDir is $XDG_DATA_HOME/mindfulday/tokens.
func DefaultTokenDir() string {
	return filepath.Join(xdg.DataHome, AppName, "tokens")
}

// Location returns the time zone the day is planned in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == DefaultTimezone {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the values a run depends on. API keys are not checked
// here: a missing key is reported by the component that needs it.
func (c *Config) Validate() error {
	var errs []error

	if c.City == "" {
		errs = append(errs, fmt.Errorf("city is required (set %s_CITY or city in the config file)", EnvPrefix))
	}
	if c.Recipient == "" {
		errs = append(errs, fmt.Errorf("recipient is required (set %s_RECIPIENT or recipient in the config file)", EnvPrefix))
	} else if _, err := mail.ParseAddress(c.Recipient); err != nil {
		errs = append(errs, fmt.Errorf("invalid recipient %q: %w", c.Recipient, err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.DayStartHour < 0 || c.DayEndHour > 23 || c.DayStartHour >= c.DayEndHour {
		errs = append(errs, fmt.Errorf("invalid planning window %d-%d: hours must satisfy 0 <= start < end <= 23", c.DayStartHour, c.DayEndHour))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}

	return errors.Join(errs...)
}

// EnsureTokenDir creates the token directory with owner-only permissions.
func (c *Config) EnsureTokenDir() error {
	if err := os.MkdirAll(c.TokenDir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	return nil
}
