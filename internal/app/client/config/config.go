package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	StoreSQLite = "sqlite"
	StoreFile   = "file"

	defaultServerAddress = "localhost:3001"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".chronicles"
	defaultLocalStore    = StoreSQLite
	defaultUsername      = "CHLJ"
	defaultAIBaseURL     = "https://open.bigmodel.cn/api/paas/v4/"
	defaultAIModel       = "glm-4-flash"
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	ConfigDir     string `mapstructure:"config_dir"`
	LocalStore    string `mapstructure:"local_store"`
	DataPath      string `mapstructure:"data_path"`
	LogFile       string `mapstructure:"log_file"`

	Sync Sync
	Auth Auth
	AI   AI
}

// Sync - тайминги и пределы автосинхронизации.
type Sync struct {
	QuietWindow    time.Duration
	MaxBytes       int64
	SuccessDisplay time.Duration
	ErrorDisplay   time.Duration
	RequestTimeout time.Duration
}

// Auth - единственная учетная запись семьи.
// Пустой PasswordHash означает пароль по умолчанию, его хэш вычисляется при старте.
type Auth struct {
	Username     string
	PasswordHash string
}

type AI struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Load читает .env, переменные окружения и необязательный config.yaml из CONFIG_DIR.
func Load() (*Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("LOCAL_STORE", defaultLocalStore)
	v.SetDefault("SYNC_QUIET_WINDOW_MS", 3000)
	v.SetDefault("SYNC_MAX_MB", 45)
	v.SetDefault("SYNC_SUCCESS_DISPLAY_MS", 2000)
	v.SetDefault("SYNC_ERROR_DISPLAY_MS", 3000)
	v.SetDefault("SYNC_REQUEST_TIMEOUT_S", 120)
	v.SetDefault("AUTH_USERNAME", defaultUsername)
	v.SetDefault("AI_BASE_URL", defaultAIBaseURL)
	v.SetDefault("AI_MODEL", defaultAIModel)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("создание директории конфигурации: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("чтение config.yaml: %w", err)
		}
	}

	logFile := v.GetString("LOG_FILE")
	if logFile == "" {
		logFile = filepath.Join(configDir, "client.log")
	}

	dataPath := filepath.Join(configDir, "data")
	if v.GetString("LOCAL_STORE") == StoreSQLite {
		dataPath = filepath.Join(configDir, "chronicles.db")
	}

	cfg := &Config{
		Env:           v.GetString("APP_ENV"),
		ServerAddress: v.GetString("SERVER_ADDRESS"),
		EnableTLS:     v.GetBool("ENABLE_TLS"),
		ConfigDir:     configDir,
		LocalStore:    v.GetString("LOCAL_STORE"),
		DataPath:      dataPath,
		LogFile:       logFile,
		Sync: Sync{
			QuietWindow:    time.Duration(v.GetInt64("SYNC_QUIET_WINDOW_MS")) * time.Millisecond,
			MaxBytes:       v.GetInt64("SYNC_MAX_MB") << 20,
			SuccessDisplay: time.Duration(v.GetInt64("SYNC_SUCCESS_DISPLAY_MS")) * time.Millisecond,
			ErrorDisplay:   time.Duration(v.GetInt64("SYNC_ERROR_DISPLAY_MS")) * time.Millisecond,
			RequestTimeout: time.Duration(v.GetInt64("SYNC_REQUEST_TIMEOUT_S")) * time.Second,
		},
		Auth: Auth{
			Username:     v.GetString("AUTH_USERNAME"),
			PasswordHash: v.GetString("AUTH_PASSWORD_HASH"),
		},
		AI: AI{
			APIKey:  v.GetString("AI_API_KEY"),
			BaseURL: v.GetString("AI_BASE_URL"),
			Model:   v.GetString("AI_MODEL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	switch c.LocalStore {
	case StoreSQLite, StoreFile:
	default:
		return fmt.Errorf("неизвестный LOCAL_STORE: %q", c.LocalStore)
	}
	if c.Sync.QuietWindow <= 0 {
		return fmt.Errorf("SYNC_QUIET_WINDOW_MS должен быть положительным")
	}
	if c.Sync.MaxBytes <= 0 {
		return fmt.Errorf("SYNC_MAX_MB должен быть положительным")
	}
	if c.Auth.Username == "" {
		return fmt.Errorf("AUTH_USERNAME не может быть пустым")
	}
	return nil
}

// BaseURL - адрес сервера со схемой.
func (c *Config) BaseURL() string {
	scheme := "http://"
	if c.EnableTLS {
		scheme = "https://"
	}
	return scheme + c.ServerAddress
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
