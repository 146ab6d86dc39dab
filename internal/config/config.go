package config

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config хранит конфигурацию сервиса
type Config struct {
	ServerAddress    string        `json:"server_address"`
	BaseURL          string        `json:"base_url"`
	DatabaseDSN      string        `json:"database_dsn"`
	PgMigrationsPath string        `json:"pg_migrations_path"`
	RedisAddr        string        `json:"redis_addr"`
	RedisPassword    string        `json:"redis_password"`
	RedisDB          int           `json:"redis_db"`
	CacheTimeout     time.Duration `json:"cache_timeout"`
	StoreTimeout     time.Duration `json:"store_timeout"`
	TaskWorkers      int           `json:"task_workers"`
	TaskQueueSize    int           `json:"task_queue_size"`
}

// NewConfig инициализирует конфигурацию: значения по умолчанию,
// затем .env и переменные окружения (высший приоритет), затем флаги.
func NewConfig() *Config {

	viper.SetDefault("SERVER_ADDRESS", "localhost:8080") // Значения по умолчанию
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("PG_MIGRATIONS_PATH", "internal/migrations")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_TIMEOUT_MS", 500)
	viper.SetDefault("STORE_TIMEOUT_MS", 2000)
	viper.SetDefault("TASK_WORKERS", 4)
	viper.SetDefault("TASK_QUEUE_SIZE", 1024)

	viper.AutomaticEnv()

	// Читаем .env, если есть (не переопределяет переменные окружения!)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // Ошибку игнорируем, если файла нет

	// Определяем флаги, но НЕ задаем в них значения по умолчанию
	serverAddress := flag.String("a", "", "server address")
	baseURL := flag.String("b", "", "base URL")
	databaseDSN := flag.String("d", "", "PostgreSQL DSN")
	redisAddr := flag.String("r", "", "Redis address (host:port)")

	flag.Parse()

	cfg := &Config{
		ServerAddress:    viper.GetString("SERVER_ADDRESS"),
		BaseURL:          viper.GetString("BASE_URL"),
		DatabaseDSN:      viper.GetString("DATABASE_DSN"),
		PgMigrationsPath: viper.GetString("PG_MIGRATIONS_PATH"),
		RedisAddr:        viper.GetString("REDIS_ADDR"),
		RedisPassword:    viper.GetString("REDIS_PASSWORD"),
		RedisDB:          viper.GetInt("REDIS_DB"),
		CacheTimeout:     time.Duration(viper.GetInt("CACHE_TIMEOUT_MS")) * time.Millisecond,
		StoreTimeout:     time.Duration(viper.GetInt("STORE_TIMEOUT_MS")) * time.Millisecond,
		TaskWorkers:      viper.GetInt("TASK_WORKERS"),
		TaskQueueSize:    viper.GetInt("TASK_QUEUE_SIZE"),
	}

	// Если флаг передан, а переменной окружения нет — используем флаг
	if *serverAddress != "" {
		cfg.ServerAddress = *serverAddress
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *databaseDSN != "" {
		cfg.DatabaseDSN = *databaseDSN
	}
	if *redisAddr != "" {
		cfg.RedisAddr = *redisAddr
	}

	log.Printf("Инициализация конфигурации: ServerAddress=%s", cfg.ServerAddress)
	log.Printf("Инициализация конфигурации: BaseURL=%s", cfg.BaseURL)
	log.Printf("Инициализация конфигурации: RedisAddr=%s", cfg.RedisAddr)

	// Проверка корректности конфигурации
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Ошибка конфигурации: %v\n", err)
	}

	return cfg
}

// Validate проверяет корректность конфигурации
func (cfg *Config) Validate() error {
	if cfg.ServerAddress == "" {
		return fmt.Errorf("адрес сервера не может быть пустым")
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("базовый URL не может быть пустым")
	}
	if cfg.DatabaseDSN == "" {
		return fmt.Errorf("адрес подключения к БД не может быть пустым")
	}
	if cfg.TaskWorkers <= 0 {
		return fmt.Errorf("число фоновых воркеров должно быть положительным")
	}
	return nil
}
