package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fleet_monitor/internal/models"
)

var (
	// DB is the globally accessible database handle
	DB *gorm.DB
)

// InitDB initializes the database connection using environment variables
// and migrates the schema.
func InitDB() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "password")
	dbname := getEnv("DB_NAME", "fleet_monitor")
	sslmode := getEnv("DB_SSLMODE", "disable")
	timezone := getEnv("DB_TIMEZONE", "UTC")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		host, user, password, dbname, port, sslmode, timezone,
	)

	// TranslateError maps driver unique-violation errors onto
	// gorm.ErrDuplicatedKey, which the position deduplication relies on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Driver{},
		&models.Vehicle{},
		&models.Device{},
		&models.Route{},
		&models.Trip{},
		&models.PositionHistory{},
	)
	if err != nil {
		log.Fatalf("auto-migration failed: %v", err)
	}

	DB = db
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

// GetDB returns the initialized DB handle
func GetDB() *gorm.DB {
	return DB
}

// JWTSecret returns the token signing key.
func JWTSecret() string {
	return getEnv("JWT_SECRET", "change-me-in-production")
}

// TelemetryBaseURL returns the tracking provider's API base URL.
func TelemetryBaseURL() string {
	return getEnv("TELEMETRY_BASE_URL", "https://api.tracking-provider.example")
}

// TelemetryAPIKey returns the provider API key.
func TelemetryAPIKey() string {
	return getEnv("TELEMETRY_API_KEY", "")
}

// TelemetryAPIUser returns the provider account user.
func TelemetryAPIUser() string {
	return getEnv("TELEMETRY_API_USER", "")
}

// TelemetryAPIPass returns the provider account password.
func TelemetryAPIPass() string {
	return getEnv("TELEMETRY_API_PASS", "")
}

// MonitorInterval returns how often the trip monitor runs a cycle.
func MonitorInterval() time.Duration {
	seconds, err := strconv.Atoi(getEnv("MONITOR_INTERVAL_SECONDS", "30"))
	if err != nil || seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}

// DeviceFreshnessThreshold is how recent a tracker report must be for a
// trip to be created against its vehicle.
func DeviceFreshnessThreshold() time.Duration {
	minutes, err := strconv.Atoi(getEnv("DEVICE_FRESHNESS_MINUTES", "30"))
	if err != nil || minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}
