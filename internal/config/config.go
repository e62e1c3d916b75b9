// Package config loads and validates the run configuration: clustering
// thresholds, the storage backend, feed ingestion, and related-event
// tuning.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eventpulse/eventpulse/internal/core"
)

// Config holds all run configuration.
type Config struct {
	Clustering Clustering `mapstructure:"clustering"`
	Storage    Storage    `mapstructure:"storage"`
	Feeds      Feeds      `mapstructure:"feeds"`
	Related    Related    `mapstructure:"related"`
	Paths      Paths      `mapstructure:"paths"`
}

// Clustering holds the similarity thresholds and vector dimension every
// clustering stage reads from.
type Clustering struct {
	Dim                   int     `mapstructure:"dim"`
	SimThreshold          float64 `mapstructure:"sim_threshold"`
	MergeSimThreshold     float64 `mapstructure:"merge_sim_threshold"`
	SubeventSimThreshold  float64 `mapstructure:"subevent_sim_threshold"`
	CosStdThreshold       float64 `mapstructure:"cos_std_threshold"`
	CosThreshold          float64 `mapstructure:"cos_threshold"`
	WindowDays            int     `mapstructure:"window_days"`
	ShortArticleThreshold int     `mapstructure:"short_article_threshold"`
}

// Window returns the history look-back as a time.Duration.
func (c Clustering) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// Storage selects and configures the persistence backend.
type Storage struct {
	Backend string `mapstructure:"backend"` // "sqlite" | "postgres"
	DSN     string `mapstructure:"dsn"`
}

// Feeds configures the optional RSS/Atom ingestion producer.
type Feeds struct {
	Enabled bool     `mapstructure:"enabled"`
	URLs    []string `mapstructure:"urls"`
}

// Related tunes the relatedEvents computation in internal/eventbuilder.
type Related struct {
	MaxResults int     `mapstructure:"max_results"`
	MinScore   float64 `mapstructure:"min_score"`
}

// Paths holds filesystem locations for operator-facing side outputs.
type Paths struct {
	EmbeddingsPath string `mapstructure:"embeddings_path"`
	OutputPath     string `mapstructure:"output_path"`
	LogPath        string `mapstructure:"log_path"`
}

var globalConfig *Config

// Load loads configuration from (in ascending priority) defaults, an
// optional .env file, a config file (explicit path or discovered in "."/
// "$HOME" as ".eventpulse.yaml"), and environment variables.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".eventpulse")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("%w: reading config file: %v", core.ErrConfigInvalid, err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling config: %v", core.ErrConfigInvalid, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it with defaults if it has
// not been loaded yet.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

func setDefaults() {
	viper.SetDefault("clustering.dim", 100)
	viper.SetDefault("clustering.sim_threshold", 0.5)
	viper.SetDefault("clustering.merge_sim_threshold", 0.7)
	viper.SetDefault("clustering.subevent_sim_threshold", 0.7)
	viper.SetDefault("clustering.cos_std_threshold", 0.2)
	viper.SetDefault("clustering.cos_threshold", 0.5)
	viper.SetDefault("clustering.window_days", 10)
	viper.SetDefault("clustering.short_article_threshold", 80)

	viper.SetDefault("storage.backend", "sqlite")
	viper.SetDefault("storage.dsn", "eventpulse.db")

	viper.SetDefault("feeds.enabled", false)
	viper.SetDefault("feeds.urls", []string{})

	viper.SetDefault("related.max_results", 15)
	viper.SetDefault("related.min_score", 0.6)

	viper.SetDefault("paths.embeddings_path", "embeddings.txt")
	viper.SetDefault("paths.output_path", "output")
	viper.SetDefault("paths.log_path", "log")
}

func validate(cfg *Config) error {
	if cfg.Clustering.Dim <= 0 {
		return fmt.Errorf("%w: clustering.dim must be positive, got %d", core.ErrConfigInvalid, cfg.Clustering.Dim)
	}
	for name, v := range map[string]float64{
		"clustering.sim_threshold":          cfg.Clustering.SimThreshold,
		"clustering.merge_sim_threshold":    cfg.Clustering.MergeSimThreshold,
		"clustering.subevent_sim_threshold": cfg.Clustering.SubeventSimThreshold,
		"clustering.cos_threshold":          cfg.Clustering.CosThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", core.ErrConfigInvalid, name, v)
		}
	}
	if cfg.Clustering.CosStdThreshold < 0 {
		return fmt.Errorf("%w: clustering.cos_std_threshold must be non-negative, got %v", core.ErrConfigInvalid, cfg.Clustering.CosStdThreshold)
	}
	if cfg.Clustering.WindowDays <= 0 {
		return fmt.Errorf("%w: clustering.window_days must be positive, got %d", core.ErrConfigInvalid, cfg.Clustering.WindowDays)
	}
	if cfg.Paths.EmbeddingsPath == "" {
		return fmt.Errorf("%w: paths.embeddings_path must be set", core.ErrConfigInvalid)
	}
	switch cfg.Storage.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: storage.backend must be \"sqlite\" or \"postgres\", got %q", core.ErrConfigInvalid, cfg.Storage.Backend)
	}
	if cfg.Storage.DSN == "" {
		return fmt.Errorf("%w: storage.dsn must be set", core.ErrConfigInvalid)
	}
	return nil
}
