package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"school-app-server/internal/scheduling"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string `validate:"required,numeric"`
	Origin                    string `validate:"required"`
	Environment               string `validate:"oneof=development production test"`
	JWTSecret                 string `validate:"required"`
	JWTRefreshSecret          string `validate:"required,nefield=JWTSecret"`
	JWTExpirationMinutes      int    `validate:"min=1"`
	JWTRefreshExpirationHours int    `validate:"min=1"`
	Database                  DatabaseConfig
	Schedule                  ScheduleConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver       string `validate:"oneof=mysql postgres"`
	Host         string
	Port         string
	Username     string
	Password     string
	Name         string
	DSN          string `validate:"required"`
	MaxOpenConns int    `validate:"min=0"`
	AutoMigrate  bool
}

// ScheduleConfig describes the daily appointment template shared by all
// practitioners.
type ScheduleConfig struct {
	Blocks   string `validate:"required"`
	Days     string `validate:"required"`
	Timezone string `validate:"required"`
}

// Template parses the schedule configuration.
func (s ScheduleConfig) Template() (scheduling.Template, error) {
	return scheduling.ParseTemplate(s.Blocks, s.Days, s.Timezone)
}

const defaultScheduleBlocks = "08:00-08:30,08:30-09:00,09:00-09:30,09:30-10:00,10:30-11:00,11:00-11:30,11:30-12:00,14:00-14:40,14:40-15:20"

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "mysql"),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "school"),
		DSN:      getEnv("DB_DSN", ""),
	}

	if dbConfig.Driver == "postgres" {
		dbConfig.Port = getEnv("DB_PORT", "5432")
	} else {
		dbConfig.Port = getEnv("DB_PORT", "3306")
	}

	if dbConfig.DSN == "" {
		dbConfig.DSN = buildDSN(dbConfig)
	}

	maxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	dbConfig.MaxOpenConns = maxOpen

	autoMigrate, err := strconv.ParseBool(getEnv("AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_MIGRATE: %w", err)
	}
	dbConfig.AutoMigrate = autoMigrate

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:4200"),
		Environment:               getEnv("APP_ENV", "development"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		Database:                  dbConfig,
		Schedule: ScheduleConfig{
			Blocks:   getEnv("SCHEDULE_BLOCKS", defaultScheduleBlocks),
			Days:     getEnv("SCHEDULE_DAYS", "mon,tue,wed,thu,fri"),
			Timezone: getEnv("SCHEDULE_TIMEZONE", "UTC"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and that the schedule parses.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Schedule.Template(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func buildDSN(db DatabaseConfig) string {
	if db.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			db.Host, db.Port, db.Username, db.Password, db.Name)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		db.Username, db.Password, db.Host, db.Port, db.Name)
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
