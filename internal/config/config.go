package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Default dataset caps. Zero disables a cap.
const (
	DefaultMaxUsers = 5000
	DefaultMaxItems = 5000
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Data           DataConfig           `mapstructure:"data"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Catalog        CatalogConfig        `mapstructure:"catalog"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Compression     bool          `mapstructure:"compression"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DataConfig selects where ratings and movie metadata are loaded from.
type DataConfig struct {
	Source       string `mapstructure:"source"`
	RatingsPath  string `mapstructure:"ratings_path"`
	MoviesPath   string `mapstructure:"movies_path"`
	RatingsTable string `mapstructure:"ratings_table"`
	MoviesTable  string `mapstructure:"movies_table"`
	MaxUsers     int    `mapstructure:"max_users"`
	MaxItems     int    `mapstructure:"max_items"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Async        bool          `mapstructure:"async"`
	Topics       struct {
		Recommendations string `mapstructure:"recommendations"`
	} `mapstructure:"topics"`
}

type RecommendationConfig struct {
	Strategy string       `mapstructure:"strategy"`
	TopN     int          `mapstructure:"top_n"`
	MinRated int          `mapstructure:"min_rated"`
	Latent   LatentConfig `mapstructure:"latent"`
}

type LatentConfig struct {
	Rank            int    `mapstructure:"rank"`
	Oversampling    int    `mapstructure:"oversampling"`
	PowerIterations int    `mapstructure:"power_iterations"`
	Seed            uint64 `mapstructure:"seed"`
}

type CatalogConfig struct {
	CacheSize         int              `mapstructure:"cache_size"`
	SampleSeed        uint64           `mapstructure:"sample_seed"`
	DefaultSampleSize int              `mapstructure:"default_sample_size"`
	RedisCache        CatalogRedisConf `mapstructure:"redis_cache"`
}

type CatalogRedisConf struct {
	Enabled   bool          `mapstructure:"enabled"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Load reads config/app.yaml or ./app.yaml when present, then applies
// environment overrides such as DATA_RATINGS_PATH or RECOMMENDATION_STRATEGY.
func Load() (*Config, error) {
	return LoadFrom("./config", ".")
}

func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the engine cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Data.Source {
	case SourceCSV:
		if c.Data.RatingsPath == "" || c.Data.MoviesPath == "" {
			errs = append(errs, errors.New("data.ratings_path and data.movies_path are required for the csv source"))
		}
	case SourcePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown data.source %q", c.Data.Source))
	}
	if c.Data.MaxUsers < 0 || c.Data.MaxItems < 0 {
		errs = append(errs, errors.New("data.max_users and data.max_items must not be negative"))
	}

	switch c.Recommendation.Strategy {
	case "similarity", "latent":
	default:
		errs = append(errs, fmt.Errorf("unknown recommendation.strategy %q", c.Recommendation.Strategy))
	}
	if c.Recommendation.TopN <= 0 {
		errs = append(errs, errors.New("recommendation.top_n must be positive"))
	}
	if c.Recommendation.MinRated <= 0 {
		errs = append(errs, errors.New("recommendation.min_rated must be positive"))
	}
	if c.Recommendation.Latent.Rank <= 0 {
		errs = append(errs, errors.New("recommendation.latent.rank must be positive"))
	}

	if c.Catalog.CacheSize <= 0 {
		errs = append(errs, errors.New("catalog.cache_size must be positive"))
	}
	if len(c.Security.CORS.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("security.cors.allowed_origins must not be empty"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.compression", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Data defaults
	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.ratings_path", "data/ml-25m/ratings.csv")
	v.SetDefault("data.movies_path", "data/ml-25m/movies_with_posters.csv")
	v.SetDefault("data.ratings_table", "ratings")
	v.SetDefault("data.movies_table", "movies")
	v.SetDefault("data.max_users", DefaultMaxUsers)
	v.SetDefault("data.max_items", DefaultMaxItems)

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_time", "15m")
	v.SetDefault("database.max_lifetime", "1h")
	v.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.url", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", "2s")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.write_timeout", "5s")
	v.SetDefault("kafka.async", true)
	v.SetDefault("kafka.topics.recommendations", "recommendation-events")

	// Recommendation defaults
	v.SetDefault("recommendation.strategy", "similarity")
	v.SetDefault("recommendation.top_n", 10)
	v.SetDefault("recommendation.min_rated", 6)
	v.SetDefault("recommendation.latent.rank", 50)
	v.SetDefault("recommendation.latent.oversampling", 10)
	v.SetDefault("recommendation.latent.power_iterations", 5)
	v.SetDefault("recommendation.latent.seed", 42)

	// Catalog defaults
	v.SetDefault("catalog.cache_size", 1024)
	v.SetDefault("catalog.sample_seed", 42)
	v.SetDefault("catalog.default_sample_size", 150)
	v.SetDefault("catalog.redis_cache.enabled", false)
	v.SetDefault("catalog.redis_cache.ttl", "10m")
	v.SetDefault("catalog.redis_cache.key_prefix", "cinematch:catalog:")

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"*"})
}
