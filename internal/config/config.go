package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Tracker  TrackerConfig
	Shop     ShopConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// StorageConfig selects the durable key-value backend
type StorageConfig struct {
	Backend string // "redis" or "postgres"
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// ConnString builds a pgx-compatible connection string
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

// TrackerConfig tunes abandoned cart detection
type TrackerConfig struct {
	Threshold  time.Duration
	SafetyTick time.Duration
}

// ShopConfig identifies the shop in outbound WhatsApp messages
type ShopConfig struct {
	Name           string
	WhatsAppNumber string
	Currency       string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("STORAGE_BACKEND", "redis")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("TRACKER_THRESHOLD", "5m")
	viper.SetDefault("TRACKER_SAFETY_TICK", "30s")
	viper.SetDefault("SHOP_CURRENCY", "F CFA")

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Storage: StorageConfig{
			Backend: viper.GetString("STORAGE_BACKEND"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Tracker: TrackerConfig{
			Threshold:  viper.GetDuration("TRACKER_THRESHOLD"),
			SafetyTick: viper.GetDuration("TRACKER_SAFETY_TICK"),
		},
		Shop: ShopConfig{
			Name:           viper.GetString("SHOP_NAME"),
			WhatsAppNumber: viper.GetString("SHOP_WHATSAPP_NUMBER"),
			Currency:       viper.GetString("SHOP_CURRENCY"),
		},
	}
}
