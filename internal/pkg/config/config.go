package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Logger    LoggerConfig
	Booking   BookingConfig
	Battery   BatteryConfig
	Scheduler SchedulerConfig
	Notify    NotifyConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Driver          string // postgres или memory
	AutoMigrate     bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// RabbitMQConfig содержит настройки брокера сообщений.
// Пустой URL отключает публикацию уведомлений и прием пополнений.
type RabbitMQConfig struct {
	URL                   string
	NotificationsExchange string
	TopUpExchange         string
	TopUpQueue            string
}

// JWTConfig содержит настройки проверки JWT
type JWTConfig struct {
	SecretKey    string
	AccessExpiry time.Duration
}

// CORSConfig содержит настройки CORS
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// LoggerConfig содержит настройки логирования
type LoggerConfig struct {
	Level  string
	Format string // json или console
	Output string // stdout или путь к файлу
}

// BookingConfig содержит настройки бронирования
type BookingConfig struct {
	ReservationHorizon time.Duration // сколько держится резерв после подтверждения
	CodeMaxAttempts    int
}

// BatteryConfig содержит параметры модели зарядки
type BatteryConfig struct {
	FullChargeDuration time.Duration // время зарядки от 0 до 100%
}

// SchedulerConfig содержит настройки фоновых задач
type SchedulerConfig struct {
	Enabled                    bool
	BookingExpiryInterval      time.Duration
	AutoChargeInterval         time.Duration
	HealthCheckInterval        time.Duration
	ApprovalTimeoutInterval    time.Duration
	SubscriptionExpiryInterval time.Duration
	BatchSize                  int
	ApprovalWindow             time.Duration
	ExpiryExtraPenalty         bool
	LockTTL                    time.Duration
}

// NotifyConfig содержит адресатов служебных уведомлений
type NotifyConfig struct {
	OperationsRecipient string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("STORAGE_DRIVER", "postgres"),
			AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "swap_user"),
			Password:        getEnv("DB_PASSWORD", "swap_password"),
			Database:        getEnv("DB_NAME", "swap_db"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                   getEnv("RABBITMQ_URL", ""),
			NotificationsExchange: getEnv("RABBITMQ_NOTIFICATIONS_EXCHANGE", "swap.notifications"),
			TopUpExchange:         getEnv("RABBITMQ_TOPUP_EXCHANGE", "credit.topup"),
			TopUpQueue:            getEnv("RABBITMQ_TOPUP_QUEUE", "swapstation.credit.topup"),
		},
		JWT: JWTConfig{
			SecretKey:    getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
			AccessExpiry: getDurationEnv("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Booking: BookingConfig{
			ReservationHorizon: getDurationEnv("BOOKING_RESERVATION_HORIZON", 3*time.Hour),
			CodeMaxAttempts:    getIntEnv("BOOKING_CODE_MAX_ATTEMPTS", 10),
		},
		Battery: BatteryConfig{
			FullChargeDuration: getDurationEnv("BATTERY_FULL_CHARGE_DURATION", 4*time.Hour),
		},
		Scheduler: SchedulerConfig{
			Enabled:                    getBoolEnv("SCHEDULER_ENABLED", true),
			BookingExpiryInterval:      getDurationEnv("SCHEDULER_BOOKING_EXPIRY_INTERVAL", 5*time.Minute),
			AutoChargeInterval:         getDurationEnv("SCHEDULER_AUTO_CHARGE_INTERVAL", 15*time.Minute),
			HealthCheckInterval:        getDurationEnv("SCHEDULER_HEALTH_CHECK_INTERVAL", 24*time.Hour),
			ApprovalTimeoutInterval:    getDurationEnv("SCHEDULER_APPROVAL_TIMEOUT_INTERVAL", 30*time.Minute),
			SubscriptionExpiryInterval: getDurationEnv("SCHEDULER_SUBSCRIPTION_EXPIRY_INTERVAL", time.Hour),
			BatchSize:                  getIntEnv("SCHEDULER_BATCH_SIZE", 200),
			ApprovalWindow:             getDurationEnv("SCHEDULER_APPROVAL_WINDOW", 48*time.Hour),
			ExpiryExtraPenalty:         getBoolEnv("EXPIRY_EXTRA_PENALTY", false),
			LockTTL:                    getDurationEnv("SCHEDULER_LOCK_TTL", 10*time.Minute),
		},
		Notify: NotifyConfig{
			OperationsRecipient: getEnv("NOTIFY_OPERATIONS_RECIPIENT", "operations"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Database.Driver)
	}
	if c.Booking.CodeMaxAttempts <= 0 {
		return fmt.Errorf("BOOKING_CODE_MAX_ATTEMPTS must be positive")
	}
	if c.Battery.FullChargeDuration <= 0 {
		return fmt.Errorf("BATTERY_FULL_CHARGE_DURATION must be positive")
	}
	if c.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("SCHEDULER_BATCH_SIZE must be positive")
	}
	return nil
}

// DSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Address возвращает адрес сервера
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Address возвращает адрес Redis
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
