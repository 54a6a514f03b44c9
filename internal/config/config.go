package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/okulikov/shopapi/internal/models"
)

type Config struct {
	ADDR        string
	ENV         string
	LOG_LEVEL   string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string
	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	KAFKA_ADDRESS string

	JWT_SECRET       string
	TOKEN_TTL        time.Duration
	COOKIE_SECURE    bool
	RATE_LIMIT_RPS   float64
	RATE_LIMIT_BURST int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		ADDR:             getEnvDefault("ADDR", ":8080"),
		ENV:              getEnvDefault("ENV", "development"),
		LOG_LEVEL:        getEnvDefault("LOG_LEVEL", "info"),
		DB_HOST:          os.Getenv("DB_HOST"),
		DB_PORT:          os.Getenv("DB_PORT"),
		DB_USER:          os.Getenv("DB_USER"),
		DB_PASSWORD:      os.Getenv("DB_PASSWORD"),
		DB_NAME:          os.Getenv("DB_NAME"),
		ES_URL:           os.Getenv("ES_URL"),
		ES_USER:          os.Getenv("ES_USER"),
		ES_PASSWORD:      os.Getenv("ES_PASSWORD"),
		KAFKA_ADDRESS:    os.Getenv("KAFKA_ADDRESS"),
		JWT_SECRET:       os.Getenv("JWT_SECRET"),
		TOKEN_TTL:        time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		COOKIE_SECURE:    getEnvBool("COOKIE_SECURE", os.Getenv("ENV") == "production"),
		RATE_LIMIT_RPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RATE_LIMIT_BURST: getEnvInt("RATE_LIMIT_BURST", 20),
	}

	if config.JWT_SECRET == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	return config, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
