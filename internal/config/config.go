package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration loaded from the environment.
type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	JWTSecret   string
	TokenExpiry time.Duration
	CORSOrigin  string
}

// LoadConfig reads configuration from a .env file if present, falling
// back to the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, relying on environment variables")
	}

	expiryHours, err := strconv.Atoi(getEnv("TOKEN_EXPIRY_HOURS", "24"))
	if err != nil {
		expiryHours = 24
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "donenme"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		TokenExpiry: time.Duration(expiryHours) * time.Hour,
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
