// Package config loads the process configuration from defaults, an optional YAML file, a
// .env file and DASHCAST_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dashcast/dashcast/forecast/options"
	"github.com/dashcast/dashcast/forecaster"
	"github.com/dashcast/dashcast/internal/logger"
	"github.com/dashcast/dashcast/stocks"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DASHCAST_"

var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Forecast ForecastConfig `yaml:"forecast"`
	Stocks   stocks.Options `yaml:"stocks"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	DevMode        bool          `yaml:"dev_mode"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// ForecastConfig holds the defaults of every forecast run
type ForecastConfig struct {
	IntervalWidth  float64  `yaml:"interval_width" validate:"gt=0,lt=1"`
	// Regularization biases short windows toward a flatter trend as it grows
	Regularization float64  `yaml:"regularization" validate:"gte=0"`
	Changepoints   int      `yaml:"changepoints" validate:"gte=0"`
	Solver         string   `yaml:"solver" validate:"oneof=lasso ols"`
	Holidays       []string `yaml:"holidays" validate:"dive,oneof=christmas thanksgiving new_year independence_day"`
	OutlierPasses  int      `yaml:"outlier_passes" validate:"gte=0"`
	DefaultHistory int      `yaml:"default_history" validate:"gte=10"`
	MaxHistory     int      `yaml:"max_history" validate:"gtefield=DefaultHistory"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 32 << 20,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level: "info",
		},
		Forecast: ForecastConfig{
			IntervalWidth:  forecaster.DefaultIntervalWidth,
			Regularization: options.DefaultRegularization,
			Changepoints:   options.NewDefaultChangepointOptions().AutoNumChangepoints,
			Solver:         options.SolverLasso,
			OutlierPasses:  0,
			DefaultHistory: 30,
			MaxHistory:     500,
		},
		Stocks: stocks.NewDefaultOptions(),
	}
}

// Load reads the configuration. A missing .env file is ignored but a missing config file
// is an error when a path is given.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config file, %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file %s, %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its validate tag
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%s, %w", err.Error(), ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	parse := func(key string, fn func(string) error) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
			}
		}
	}

	str("ADDR", &c.Server.Addr)
	parse("MAX_UPLOAD_BYTES", func(v string) (err error) {
		c.Server.MaxUploadBytes, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("WRITE_TIMEOUT", func(v string) (err error) {
		c.Server.WriteTimeout, err = time.ParseDuration(v)
		return err
	})
	parse("ALLOWED_ORIGINS", func(v string) error {
		c.Server.AllowedOrigins = splitList(v)
		return nil
	})
	parse("DEV_MODE", func(v string) (err error) {
		c.Server.DevMode, err = strconv.ParseBool(v)
		return err
	})

	str("LOG_LEVEL", &c.Log.Level)
	parse("LOG_PRETTY", func(v string) (err error) {
		c.Log.Pretty, err = strconv.ParseBool(v)
		return err
	})

	parse("INTERVAL_WIDTH", func(v string) (err error) {
		c.Forecast.IntervalWidth, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("REGULARIZATION", func(v string) (err error) {
		c.Forecast.Regularization, err = strconv.ParseFloat(v, 64)
		return err
	})
	str("SOLVER", &c.Forecast.Solver)
	parse("HOLIDAYS", func(v string) error {
		c.Forecast.Holidays = splitList(v)
		return nil
	})

	str("STOCKS_BASE_URL", &c.Stocks.BaseURL)
	parse("STOCKS_TIMEOUT", func(v string) (err error) {
		c.Stocks.Timeout, err = time.ParseDuration(v)
		return err
	})

	if len(errs) > 0 {
		return fmt.Errorf("%w, %w", errors.Join(errs...), ErrInvalidConfig)
	}
	return nil
}

func splitList(v string) []string {
	var res []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}

// Logger returns the logger configuration
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.Log.Level, Pretty: c.Log.Pretty}
}

// ForecasterOptions builds a fresh set of forecaster options from the forecast defaults
func (c *Config) ForecasterOptions() *forecaster.Options {
	opt := forecaster.NewDefaultOptions()
	opt.IntervalWidth = c.Forecast.IntervalWidth
	opt.SeriesOptions.Regularization = c.Forecast.Regularization
	opt.SeriesOptions.Solver = c.Forecast.Solver
	opt.SeriesOptions.ChangepointOptions.AutoNumChangepoints = c.Forecast.Changepoints
	if c.Forecast.Changepoints == 0 {
		opt.SeriesOptions.ChangepointOptions.Auto = false
	}
	opt.SeriesOptions.EventOptions.Holidays = append([]string(nil), c.Forecast.Holidays...)
	if c.Forecast.OutlierPasses > 0 {
		opt.OutlierOptions = forecaster.NewOutlierOptions()
		opt.OutlierOptions.NumPasses = c.Forecast.OutlierPasses
	}
	return opt
}
