package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/cannabis-pipeline/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Clean   CleanConfig   `yaml:"clean" mapstructure:"clean"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates the input and output directories.
type PathsConfig struct {
	RawDir string `yaml:"raw_dir" mapstructure:"raw_dir" validate:"required"`
	// StoresDir holds the regional store registries. Empty means
	// <raw_dir>/01_store_locations.
	StoresDir string `yaml:"stores_dir" mapstructure:"stores_dir"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir" validate:"required"`
	// SourcesFile replaces the built-in store source list when set.
	SourcesFile string `yaml:"sources_file" mapstructure:"sources_file"`
}

// StoreLocationsDir returns StoresDir or its default.
func (p PathsConfig) StoreLocationsDir() string {
	if p.StoresDir != "" {
		return p.StoresDir
	}
	return filepath.Join(p.RawDir, "01_store_locations")
}

// GeocodeConfig configures the geocoding client and the enrichment retries.
type GeocodeConfig struct {
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	RequestDelay time.Duration `yaml:"request_delay" mapstructure:"request_delay" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"min=1,max=10"`
	Backoff      time.Duration `yaml:"backoff" mapstructure:"backoff" validate:"gte=0"`
	// BackoffMultiplier of 1.0 keeps the retry delay constant.
	BackoffMultiplier float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier" validate:"gte=1"`
	Workers           int     `yaml:"workers" mapstructure:"workers" validate:"min=1,max=32"`
}

// Retry returns the enrichment retry policy.
func (g GeocodeConfig) Retry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = g.MaxAttempts
	cfg.InitialBackoff = g.Backoff
	cfg.Multiplier = g.BackoffMultiplier
	return cfg
}

// CleanConfig configures the dataset cleaning steps.
type CleanConfig struct {
	// Threshold is the missing-value share at which columns and rows are dropped.
	Threshold float64 `yaml:"threshold" mapstructure:"threshold" validate:"gt=0,lte=1"`
}

// FetchSource is one raw file to download.
type FetchSource struct {
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`
	// Path is relative to the raw data directory.
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
	// Extract unpacks a ZIP download into Path's directory.
	Extract bool `yaml:"extract" mapstructure:"extract"`
}

// FetchConfig configures raw data downloads.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// HostRate is the request rate allowed per host, in requests per second.
	HostRate float64       `yaml:"host_rate" mapstructure:"host_rate" validate:"gt=0"`
	Sources  []FetchSource `yaml:"sources" mapstructure:"sources" validate:"dive"`
}

// StoreConfig configures the database sinks.
type StoreConfig struct {
	// SQLitePath holds the run log and store records. Empty disables it.
	SQLitePath     string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresURL    string `yaml:"postgres_url" mapstructure:"postgres_url"`
	PostgresSchema string `yaml:"postgres_schema" mapstructure:"postgres_schema"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CANNABIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("geocode.api_key", "CANNABIS_GEOCODE_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind api key")
	}

	// Defaults
	v.SetDefault("paths.raw_dir", "data/01_raw_data")
	v.SetDefault("paths.stores_dir", "")
	v.SetDefault("paths.output_dir", "data/03_final_outputs")
	v.SetDefault("paths.sources_file", "")
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.request_delay", 200*time.Millisecond)
	v.SetDefault("geocode.timeout", 30*time.Second)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.backoff", 400*time.Millisecond)
	v.SetDefault("geocode.backoff_multiplier", 1.0)
	v.SetDefault("geocode.workers", 1)
	v.SetDefault("clean.threshold", 0.5)
	v.SetDefault("fetch.user_agent", "cannabis-pipeline/1.0")
	v.SetDefault("fetch.timeout", 2*time.Minute)
	v.SetDefault("fetch.host_rate", 5.0)
	v.SetDefault("store.sqlite_path", "data/pipeline.db")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.postgres_schema", "cannabis")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their config key rather than the Go name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the configuration for the given command. Commands that
// geocode require an API key.
func (c *Config) Validate(mode string) error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return eris.Wrap(err, "config: validate")
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	switch mode {
	case "run", "stores", "geocode":
		if c.Geocode.APIKey == "" {
			errs = append(errs, "geocode.api_key is required (set GOOGLE_API_KEY)")
		}
	case "crime", "report", "fetch":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// fieldError renders a validation failure as "clean.threshold failed gt=0".
func fieldError(fe validator.FieldError) string {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return key + " failed " + rule
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
