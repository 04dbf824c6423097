package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress   = ":3001"
	defaultDriver       = "file"
	defaultDataDir      = "./data"
	defaultSQLitePath   = "./data/chronicles.db"
	defaultMigrations   = "./migrations"
	defaultMaxPayloadMB = 50
)

type Config struct {
	Env     string
	DB      DB
	Server  Server
	Storage Storage
	Logger  Logger
}

type DB struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type Server struct {
	RunAddress string `env:"RUN_ADDRESS"`
	// MaxPayloadBytes - предел размера data в запросе сохранения (413 при превышении).
	MaxPayloadBytes int64 `env:"MAX_PAYLOAD_MB"`
}

type Storage struct {
	Driver     string `env:"STORAGE_DRIVER"`
	DataDir    string `env:"DATA_DIR"`
	SQLitePath string `env:"SQLITE_PATH"`
}

type Logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func MustLoad() *Config {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("ошибка загрузки .env: %v", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", EnvLocal)
	viper.SetDefault("RUN_ADDRESS", defaultRunAddress)
	viper.SetDefault("STORAGE_DRIVER", defaultDriver)
	viper.SetDefault("DATA_DIR", defaultDataDir)
	viper.SetDefault("SQLITE_PATH", defaultSQLitePath)
	viper.SetDefault("MIGRATIONS_PATH", defaultMigrations)
	viper.SetDefault("MAX_PAYLOAD_MB", defaultMaxPayloadMB)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Env: viper.GetString("APP_ENV"),
		DB: DB{
			DatabaseURI: viper.GetString("DATABASE_URI"),
			Migrations:  viper.GetString("MIGRATIONS_PATH"),
		},
		Server: Server{
			RunAddress:      viper.GetString("RUN_ADDRESS"),
			MaxPayloadBytes: viper.GetInt64("MAX_PAYLOAD_MB") << 20,
		},
		Storage: Storage{
			Driver:     viper.GetString("STORAGE_DRIVER"),
			DataDir:    viper.GetString("DATA_DIR"),
			SQLitePath: viper.GetString("SQLITE_PATH"),
		},
		Logger: Logger{LogLevel: viper.GetString("LOG_LEVEL")},
	}

	if err := cfg.validate(); err != nil {
		log.Fatalf("ошибка конфигурации: %v", err)
	}

	return cfg
}

func (c *Config) validate() error {
	if c.Server.RunAddress == "" {
		return fmt.Errorf("RUN_ADDRESS не может быть пустым")
	}
	if c.Server.MaxPayloadBytes <= 0 {
		return fmt.Errorf("MAX_PAYLOAD_MB должен быть положительным")
	}
	switch c.Storage.Driver {
	case "postgres":
		if c.DB.DatabaseURI == "" {
			return fmt.Errorf("DATABASE_URI обязателен для драйвера postgres")
		}
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("неизвестный STORAGE_DRIVER: %q", c.Storage.Driver)
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
