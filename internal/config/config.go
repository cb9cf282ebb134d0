package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DB        DBConfig
	API       APIConfig
	Sync      SyncConfig
	Server    ServerConfig
	Scheduler SchedulerConfig
	NATS      NATSConfig
}

// DBType represents database type
type DBType string

const (
	DBTypePostgreSQL DBType = "postgres"
	DBTypeMemory     DBType = "memory"
)

// DefaultTimezone is the operating timezone used to determine "tomorrow" for flights
const DefaultTimezone = "Europe/Berlin"

// DBConfig holds database configuration
type DBConfig struct {
	Type     DBType
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// APIConfig holds credentials and endpoints of the remote data providers
type APIConfig struct {
	OpenWeatherKey  string
	RapidAPIKey     string
	WeatherBaseURL  string
	AeroDataBoxURL  string
	AeroDataBoxHost string
	WikipediaURL    string
	UserAgent       string
	HTTPTimeout     time.Duration
}

// SyncConfig holds settings for the sync orchestrator
type SyncConfig struct {
	Timezone string
	// Reset is honoured by the setup command only
	Reset    bool
	Cities   []string
}

// SchedulerConfig holds intervals of the periodic jobs
type SchedulerConfig struct {
	WeatherInterval    time.Duration
	FlightsInterval    time.Duration
	PopulationInterval time.Duration
}

// NATSConfig holds the optional event bus settings. An empty URL disables publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// DSN returns the database connection string
func (c DBConfig) DSN() string {
	if c.Type == DBTypeMemory {
		// SQLite in-memory database
		if c.Name != "" && c.Name != "geocity" {
			return fmt.Sprintf("file:%s?mode=memory&cache=shared", c.Name)
		}
		return "file::memory:?cache=shared"
	}
	return c.dsnFor(c.Name)
}

// MaintenanceDSN returns the connection string of the server's maintenance database,
// used to create or drop the configured database.
func (c DBConfig) MaintenanceDSN() string {
	return c.dsnFor("postgres")
}

func (c DBConfig) dsnFor(name string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, name, c.SSLMode,
	)
}

// IsMemory returns true if using in-memory database
func (c DBConfig) IsMemory() bool {
	return c.Type == DBTypeMemory
}

// Location resolves the configured operating timezone
func (c SyncConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbType := DBType(getEnv("DB_TYPE", "memory"))
	if dbType != DBTypePostgreSQL && dbType != DBTypeMemory {
		dbType = DBTypeMemory
	}

	httpTimeout, err := getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	weatherInterval, err := getEnvAsDuration("SCHEDULER_WEATHER_INTERVAL", 3*time.Hour)
	if err != nil {
		return nil, err
	}
	flightsInterval, err := getEnvAsDuration("SCHEDULER_FLIGHTS_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	populationInterval, err := getEnvAsDuration("SCHEDULER_POPULATION_INTERVAL", 720*time.Hour)
	if err != nil {
		return nil, err
	}

	config := &Config{
		DB: DBConfig{
			Type:     dbType,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "geocity"),
			Password: getEnv("DB_PASSWORD", "geocity_password"),
			Name:     getEnv("DB_NAME", "geocity"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		API: APIConfig{
			OpenWeatherKey:  os.Getenv("OPENWEATHER_API_KEY"),
			RapidAPIKey:     os.Getenv("RAPIDAPI_API_KEY"),
			WeatherBaseURL:  getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
			AeroDataBoxURL:  getEnv("AERODATABOX_BASE_URL", "https://aerodatabox.p.rapidapi.com"),
			AeroDataBoxHost: getEnv("AERODATABOX_HOST", "aerodatabox.p.rapidapi.com"),
			WikipediaURL:    getEnv("WIKIPEDIA_BASE_URL", "https://en.wikipedia.org"),
			UserAgent:       getEnv("HTTP_USER_AGENT", "geocity-etl/1.0"),
			HTTPTimeout:     httpTimeout,
		},
		Sync: SyncConfig{
			Timezone: getEnv("SYNC_TIMEZONE", DefaultTimezone),
			Reset:    getEnvAsBool("DB_RESET", false),
			Cities:   getEnvAsSlice("SYNC_CITIES"),
		},
		Server: ServerConfig{
			Port: getEnv("APP_PORT", "8080"),
		},
		Scheduler: SchedulerConfig{
			WeatherInterval:    weatherInterval,
			FlightsInterval:    flightsInterval,
			PopulationInterval: populationInterval,
		},
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "geocity.sync"),
		},
	}

	if _, err := config.Sync.Location(); err != nil {
		return nil, fmt.Errorf("invalid SYNC_TIMEZONE %q: %w", config.Sync.Timezone, err)
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
