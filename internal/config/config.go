package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Elevation ElevationConfig `yaml:"elevation" mapstructure:"elevation"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend shared by the analysis store
// and the elevation sample source.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ElevationConfig configures elevation sample retrieval.
type ElevationConfig struct {
	FetchTimeoutSecs        int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	BreakerFailureThreshold int `yaml:"breaker_failure_threshold" mapstructure:"breaker_failure_threshold"`
	BreakerResetSecs        int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ImportConfig configures elevation dataset ingestion.
type ImportConfig struct {
	TempDir        string `yaml:"temp_dir" mapstructure:"temp_dir"`
	FTPTimeoutSecs int    `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
	Charset        string `yaml:"charset" mapstructure:"charset"`
	Dataset        string `yaml:"dataset" mapstructure:"dataset"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentAreas int `yaml:"max_concurrent_areas" mapstructure:"max_concurrent_areas"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TERRAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("elevation.fetch_timeout_secs", 30)
	v.SetDefault("elevation.breaker_failure_threshold", 5)
	v.SetDefault("elevation.breaker_reset_secs", 30)
	v.SetDefault("import.temp_dir", "/tmp/terrain")
	v.SetDefault("import.ftp_timeout_secs", 30)
	v.SetDefault("import.charset", "utf-8")
	v.SetDefault("import.dataset", "default")
	v.SetDefault("batch.max_concurrent_areas", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
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

// Validate checks the settings required by a command mode: "store" for any
// command touching the database, "batch" and "serve" add their own checks.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
		if c.Elevation.FetchTimeoutSecs < 0 {
			problems = append(problems, "elevation.fetch_timeout_secs must be >= 0")
		}
	}

	switch mode {
	case "store":
		checkStore()
	case "batch":
		checkStore()
		if c.Batch.MaxConcurrentAreas < 1 || c.Batch.MaxConcurrentAreas > 64 {
			problems = append(problems, "batch.max_concurrent_areas must be between 1 and 64")
		}
	case "serve":
		checkStore()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
			problems = append(problems, "server rate limits must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
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
