package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	ROP      ROPConfig
	Forecast ForecastConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type AppConfig struct {
	ExportDir string
}

type CacheConfig struct {
	Enabled               bool
	RedisURL              string
	RedisHost             string
	RedisPort             string
	RedisPassword         string
	RedisDB               int
	SuggestionsTTLSeconds int
}

// ROPConfig holds the calculation defaults applied to every policy that does
// not override them.
type ROPConfig struct {
	LookbackDays          int
	DefaultServiceLevel   int
	MinDemandSamples      int
	TargetStockMultiplier float64
	DefaultLeadTimeDays   int
	WorkerCount           int
	Schedule              string
}

// Validate rejects settings the calculation cannot run with.
func (c ROPConfig) Validate() error {
	switch {
	case c.LookbackDays < 7:
		return fmt.Errorf("ROP_LOOKBACK_DAYS must be at least 7, got %d", c.LookbackDays)
	case c.DefaultServiceLevel < 50 || c.DefaultServiceLevel > 99:
		return fmt.Errorf("ROP_DEFAULT_SERVICE_LEVEL must be between 50 and 99, got %d", c.DefaultServiceLevel)
	case c.MinDemandSamples < 1:
		return fmt.Errorf("ROP_MIN_DEMAND_SAMPLES must be positive, got %d", c.MinDemandSamples)
	case c.TargetStockMultiplier < 1:
		return fmt.Errorf("ROP_TARGET_STOCK_MULTIPLIER must be at least 1.0, got %v", c.TargetStockMultiplier)
	case c.DefaultLeadTimeDays < 1:
		return fmt.Errorf("ROP_DEFAULT_LEAD_TIME_DAYS must be positive, got %d", c.DefaultLeadTimeDays)
	case c.WorkerCount < 1:
		return fmt.Errorf("ROP_WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	return nil
}

// DefaultROPConfig mirrors the environment defaults. Used by tests and the CLI.
func DefaultROPConfig() ROPConfig {
	return ROPConfig{
		LookbackDays:          90,
		DefaultServiceLevel:   95,
		MinDemandSamples:      5,
		TargetStockMultiplier: 2.0,
		DefaultLeadTimeDays:   30,
		WorkerCount:           1,
	}
}

type ForecastConfig struct {
	URL            string
	Token          string
	TimeoutSeconds int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

// Enabled reports whether report uploads have somewhere to go.
func (c StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		defaults := DefaultROPConfig()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DATABASE_URL", "")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "inventory")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("APP_EXPORT_DIR", "./data/exports")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_SUGGESTIONS_TTL_SECONDS", 60)
		viper.SetDefault("ROP_LOOKBACK_DAYS", defaults.LookbackDays)
		viper.SetDefault("ROP_DEFAULT_SERVICE_LEVEL", defaults.DefaultServiceLevel)
		viper.SetDefault("ROP_MIN_DEMAND_SAMPLES", defaults.MinDemandSamples)
		viper.SetDefault("ROP_TARGET_STOCK_MULTIPLIER", defaults.TargetStockMultiplier)
		viper.SetDefault("ROP_DEFAULT_LEAD_TIME_DAYS", defaults.DefaultLeadTimeDays)
		viper.SetDefault("ROP_WORKER_COUNT", defaults.WorkerCount)
		viper.SetDefault("ROP_SCHEDULE", "")
		viper.SetDefault("FORECAST_URL", "")
		viper.SetDefault("FORECAST_TOKEN", "")
		viper.SetDefault("FORECAST_TIMEOUT_SECONDS", 10)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "")
		viper.SetDefault("STORAGE_REGION", "")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("STORAGE_PREFIX", "rop-reports")

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_EXPORT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				LogLevel:       viper.GetString("LOG_LEVEL"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				URL:      viper.GetString("DATABASE_URL"),
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			App: AppConfig{
				ExportDir: viper.GetString("APP_EXPORT_DIR"),
			},
			Cache: CacheConfig{
				Enabled:               viper.GetBool("CACHE_ENABLED"),
				RedisURL:              viper.GetString("REDIS_URL"),
				RedisHost:             viper.GetString("REDIS_HOST"),
				RedisPort:             viper.GetString("REDIS_PORT"),
				RedisPassword:         viper.GetString("REDIS_PASSWORD"),
				RedisDB:               viper.GetInt("REDIS_DB"),
				SuggestionsTTLSeconds: viper.GetInt("CACHE_SUGGESTIONS_TTL_SECONDS"),
			},
			ROP: ROPConfig{
				LookbackDays:          viper.GetInt("ROP_LOOKBACK_DAYS"),
				DefaultServiceLevel:   viper.GetInt("ROP_DEFAULT_SERVICE_LEVEL"),
				MinDemandSamples:      viper.GetInt("ROP_MIN_DEMAND_SAMPLES"),
				TargetStockMultiplier: viper.GetFloat64("ROP_TARGET_STOCK_MULTIPLIER"),
				DefaultLeadTimeDays:   viper.GetInt("ROP_DEFAULT_LEAD_TIME_DAYS"),
				WorkerCount:           viper.GetInt("ROP_WORKER_COUNT"),
				Schedule:              viper.GetString("ROP_SCHEDULE"),
			},
			Forecast: ForecastConfig{
				URL:            viper.GetString("FORECAST_URL"),
				Token:          viper.GetString("FORECAST_TOKEN"),
				TimeoutSeconds: viper.GetInt("FORECAST_TIMEOUT_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
				Prefix:    viper.GetString("STORAGE_PREFIX"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
