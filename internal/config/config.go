package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	Booking                   BookingConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// BookingConfig holds the scheduling rules for appointments.
type BookingConfig struct {
	// AppointmentDurationMinutes is the fixed length of every visit slot.
	AppointmentDurationMinutes int
	// RefundWindowHours is how far before the start time a paid appointment
	// must be cancelled to qualify for a full refund.
	RefundWindowHours int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clinic"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	durationMinutes, err := strconv.Atoi(getEnv("APPOINTMENT_DURATION_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPOINTMENT_DURATION_MINUTES: %w", err)
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("APPOINTMENT_DURATION_MINUTES must be positive, got %d", durationMinutes)
	}

	refundWindowHours, err := strconv.Atoi(getEnv("REFUND_WINDOW_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFUND_WINDOW_HOURS: %w", err)
	}
	if refundWindowHours < 0 {
		return nil, fmt.Errorf("REFUND_WINDOW_HOURS must not be negative, got %d", refundWindowHours)
	}

	// Return complete configuration
	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:4200"),
		Environment:               getEnv("APP_ENV", "development"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:                  dbConfig,
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		Booking: BookingConfig{
			AppointmentDurationMinutes: durationMinutes,
			RefundWindowHours:          refundWindowHours,
		},
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
