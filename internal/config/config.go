package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	DB        DBConfig        `yaml:"db" mapstructure:"db"`
	Skatetrax SkatetraxConfig `yaml:"skatetrax" mapstructure:"skatetrax"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DBConfig configures the staging and directory database.
type DBConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	MaxConns int    `yaml:"max_conns" mapstructure:"max_conns"`
}

// SkatetraxConfig holds settings for the production skatetrax side:
// the public rink API consulted during promotion and the operational
// database targeted by push and ice-time sync.
type SkatetraxConfig struct {
	APIURL string `yaml:"api_url" mapstructure:"api_url"`
	DBURL  string `yaml:"db_url" mapstructure:"db_url"`
}

// GeocodeConfig configures the Nominatim client and its result cache.
type GeocodeConfig struct {
	URL       string        `yaml:"url" mapstructure:"url"`
	Gap       time.Duration `yaml:"gap" mapstructure:"gap"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CachePath string        `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTL  time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// HTTPConfig configures the shared scraping HTTP client.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// PipelineConfig holds batch sizes for the staging pipeline.
type PipelineConfig struct {
	GeocodeBatch int `yaml:"geocode_batch" mapstructure:"geocode_batch"`
	PromoteBatch int `yaml:"promote_batch" mapstructure:"promote_batch"`
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
	v.AddConfigPath("$HOME/.ice-maker")

	// Environment
	v.SetEnvPrefix("ICEMAKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The skatetrax URLs are shared with other skatetrax tooling and
	// come in under their bare names as well as the prefixed ones.
	_ = v.BindEnv("skatetrax.api_url", "ICEMAKER_SKATETRAX_API_URL", "SKATETRAX_API_URL")
	_ = v.BindEnv("skatetrax.db_url", "ICEMAKER_SKATETRAX_DB_URL", "SKATETRAX_DB_URL")

	// Defaults
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("skatetrax.api_url", "https://api.skatetrax.com/api/v4/public/rinks")
	v.SetDefault("geocode.url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.gap", "1s")
	v.SetDefault("geocode.timeout", "10s")
	v.SetDefault("geocode.cache_path", "geocode-cache.db")
	v.SetDefault("geocode.cache_ttl", "2160h")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.user_agent", "ice-maker/0.1 (skatetrax rink directory builder)")
	v.SetDefault("pipeline.geocode_batch", 50)
	v.SetDefault("pipeline.promote_batch", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks settings that every database-touching command needs.
func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return eris.New("config: db.url is required (set ICEMAKER_DB_URL)")
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
