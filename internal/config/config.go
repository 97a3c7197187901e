package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	HotelID                  string
	RecommendationTTLSeconds int
	AuthSecret               string
	AccessTokenTTLMinutes    int
	ManagerPIN               string
}

func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("RECOMMENDATION_TTL_SECONDS", "30"))
	if err != nil || ttl < 1 {
		ttl = 30
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigin:            getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  redisDB,
		HotelID:                  getEnv("DEFAULT_HOTEL_ID", "main-hotel"),
		RecommendationTTLSeconds: ttl,
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:    tokenTTL,
		ManagerPIN:               strings.TrimSpace(os.Getenv("MANAGER_PIN")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
