package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBPath string

	// OpenWeatherMap short-range forecast configuration.
	WeatherAPIKey  string
	WeatherEnabled bool
	WeatherTimeout time.Duration

	// Open-Meteo seasonal aggregate configuration.
	SeasonalBaseURL string
	SeasonalTimeout time.Duration

	// Soil provider configuration.
	SoilCardBaseURL  string
	SoilCardAPIKey   string
	SoilCardEnabled  bool
	SoilGridsBaseURL string
	SoilGridsEnabled bool
	SoilTimeout      time.Duration
	SoilCacheSize    int

	// External prediction service configuration.
	MLServiceURL string
	MLTimeout    time.Duration

	// Optional Kafka prediction event stream.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := envDuration("WEATHER_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	seasonalTimeout, err := envDuration("SEASONAL_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	soilTimeout, err := envDuration("SOIL_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	mlTimeout, err := envDuration("ML_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	soilCacheSize, err := envInt("SOIL_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	weatherKey := os.Getenv("WEATHER_API_KEY")
	weatherEnabled := weatherKey != ""
	if v := os.Getenv("WEATHER_ENABLED"); v != "" {
		weatherEnabled = v == "true"
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":4000"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath: envOrDefault("DB_PATH", "crop_advisor.db"),

		WeatherAPIKey:  weatherKey,
		WeatherEnabled: weatherEnabled,
		WeatherTimeout: weatherTimeout,

		SeasonalBaseURL: envOrDefault("SEASONAL_BASE_URL", "https://seasonal-api.open-meteo.com"),
		SeasonalTimeout: seasonalTimeout,

		SoilCardBaseURL:  envOrDefault("SOIL_CARD_BASE_URL", "https://soilhealth.dac.gov.in"),
		SoilCardAPIKey:   os.Getenv("SOIL_CARD_API_KEY"),
		SoilCardEnabled:  os.Getenv("SOIL_CARD_API_KEY") != "",
		SoilGridsBaseURL: envOrDefault("SOIL_GRIDS_BASE_URL", "https://rest.isric.org"),
		SoilGridsEnabled: envOrDefault("SOIL_GRIDS_ENABLED", "true") == "true",
		SoilTimeout:      soilTimeout,
		SoilCacheSize:    soilCacheSize,

		MLServiceURL: envOrDefault("ML_SERVICE_URL", "http://localhost:5000/api/predict"),
		MLTimeout:    mlTimeout,

		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "prediction-events"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.MLServiceURL == "" {
		return nil, errors.New("ML_SERVICE_URL is required")
	}
	if cfg.WeatherEnabled && cfg.WeatherAPIKey == "" {
		return nil, errors.New("WEATHER_ENABLED is true but WEATHER_API_KEY is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
