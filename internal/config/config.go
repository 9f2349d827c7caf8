package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Features   FeaturesConfig   `yaml:"features" envconfig:"FEATURES"`
	Evaluation EvaluationConfig `yaml:"evaluation" envconfig:"EVALUATION"`
	Search     SearchConfig     `yaml:"search" envconfig:"SEARCH"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration for the prediction surface
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/demandcast.log"`
}

// PathsConfig contains file system paths for inputs and outputs
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	SalesFile    string `yaml:"sales_file" envconfig:"SALES_FILE" default:"sales.csv"`
	ReturnsFile  string `yaml:"returns_file" envconfig:"RETURNS_FILE" default:"returns.csv"`
	PromosFile   string `yaml:"promos_file" envconfig:"PROMOS_FILE" default:"promotions.csv"`
	HolidaysFile string `yaml:"holidays_file" envconfig:"HOLIDAYS_FILE" default:"holidays.csv"`
	ArtifactFile string `yaml:"artifact_file" envconfig:"ARTIFACT_FILE" default:"model/demandcast.artifact"`
	ReportFile   string `yaml:"report_file" envconfig:"REPORT_FILE" default:"reports/training_report.xlsx"`
}

// FeaturesConfig parameterizes the group time-series feature builder.
// Lag offsets and rolling windows are row positions within a series;
// PromoWindowDays is a calendar-day window and must stay separate.
type FeaturesConfig struct {
	LagOffsets         []int   `yaml:"lag_offsets" envconfig:"LAG_OFFSETS" default:"1,7,14,30,90" validate:"min=1,dive,min=1"`
	RollingWindows     []int   `yaml:"rolling_windows" envconfig:"ROLLING_WINDOWS" default:"3,7,30" validate:"min=1,dive,min=1"`
	MAWindows          []int   `yaml:"ma_windows" envconfig:"MA_WINDOWS" default:"7,30,90" validate:"min=1,dive,min=1"`
	StdWindows         []int   `yaml:"std_windows" envconfig:"STD_WINDOWS" default:"7,30" validate:"dive,min=2"`
	PromoWindowDays    int     `yaml:"promo_window_days" envconfig:"PROMO_WINDOW_DAYS" default:"30" validate:"min=1"`
	HolidaySentinel    int     `yaml:"holiday_sentinel" envconfig:"HOLIDAY_SENTINEL" default:"999" validate:"min=1"`
	TargetClipQuantile float64 `yaml:"target_clip_quantile" envconfig:"TARGET_CLIP_QUANTILE" default:"0.99" validate:"gt=0,lte=1"`
}

// EvaluationConfig controls the time-ordered evaluation protocol
type EvaluationConfig struct {
	TestDays      int   `yaml:"test_days" envconfig:"TEST_DAYS" default:"30" validate:"min=1"`
	Folds         int   `yaml:"folds" envconfig:"FOLDS" default:"3" validate:"min=2"`
	Seed          int64 `yaml:"seed" envconfig:"SEED" default:"42"`
	Trials        int   `yaml:"trials" envconfig:"TRIALS" default:"30" validate:"min=1"`
	EarlyStopping int   `yaml:"early_stopping" envconfig:"EARLY_STOPPING" default:"50" validate:"min=1"`
	MaxRounds     int   `yaml:"max_rounds" envconfig:"MAX_ROUNDS" default:"500" validate:"min=1"`
	HorizonDays   int   `yaml:"horizon_days" envconfig:"HORIZON_DAYS" default:"90" validate:"min=1"`
}

// SearchConfig documents the hyperparameter search-space bounds.
// Bounds are validated at load time; a tuner must never receive a
// configuration outside these ranges.
type SearchConfig struct {
	LearningRateMin  float64 `yaml:"learning_rate_min" envconfig:"LEARNING_RATE_MIN" default:"0.01" validate:"gt=0"`
	LearningRateMax  float64 `yaml:"learning_rate_max" envconfig:"LEARNING_RATE_MAX" default:"0.1" validate:"gt=0,gtefield=LearningRateMin"`
	LeavesMin        int     `yaml:"leaves_min" envconfig:"LEAVES_MIN" default:"20" validate:"min=2"`
	LeavesMax        int     `yaml:"leaves_max" envconfig:"LEAVES_MAX" default:"150" validate:"gtefield=LeavesMin"`
	DepthMin         int     `yaml:"depth_min" envconfig:"DEPTH_MIN" default:"3" validate:"min=1"`
	DepthMax         int     `yaml:"depth_max" envconfig:"DEPTH_MAX" default:"10" validate:"gtefield=DepthMin"`
	MinSamplesMin    int     `yaml:"min_samples_min" envconfig:"MIN_SAMPLES_MIN" default:"5" validate:"min=1"`
	MinSamplesMax    int     `yaml:"min_samples_max" envconfig:"MIN_SAMPLES_MAX" default:"100" validate:"gtefield=MinSamplesMin"`
	FeatureFracMin   float64 `yaml:"feature_frac_min" envconfig:"FEATURE_FRAC_MIN" default:"0.5" validate:"gt=0,lte=1"`
	FeatureFracMax   float64 `yaml:"feature_frac_max" envconfig:"FEATURE_FRAC_MAX" default:"1.0" validate:"gt=0,lte=1,gtefield=FeatureFracMin"`
	RowFracMin       float64 `yaml:"row_frac_min" envconfig:"ROW_FRAC_MIN" default:"0.5" validate:"gt=0,lte=1"`
	RowFracMax       float64 `yaml:"row_frac_max" envconfig:"ROW_FRAC_MAX" default:"1.0" validate:"gt=0,lte=1,gtefield=RowFracMin"`
}

// Load builds the configuration from struct-tag defaults, then
// environment variables, then the optional YAML file, later sources
// taking precedence. Keys absent from the file leave the prior value
// untouched.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DEMANDCAST", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration, including search-space bounds.
// Per the error taxonomy, an invalid search space is fatal here, not
// at trial-run time.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Default returns the configuration with struct-tag defaults applied
// and no environment or file overrides.
func Default() *Config {
	var cfg Config
	// envconfig applies struct-tag defaults for unset variables
	if err := envconfig.Process("DEMANDCAST_DEFAULTS_UNUSED", &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}
