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

// DefaultDHTSheetURL is the Apps Script web app that exports the DHT sheet as CSV.
const DefaultDHTSheetURL = "https://script.google.com/macros/s/AKfycby73kauOAQ2QASSKKMDyI4d7LOFUbcGXgSfetVtlnngeOditQvS0JrrV_4DvaDkdpKv/exec"

// Threshold and refresh bounds accepted by Load.
const (
	MinAlertThreshold = 0
	MaxAlertThreshold = 500
	MinRefresh        = 3 * time.Second
	MaxRefresh        = 60 * time.Second
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	APIBaseURL         string
	APITimeout         time.Duration
	PM25AlertThreshold float64
	RefreshInterval    time.Duration
	SimulateOnFailure  bool
	LatestTTL          time.Duration
	SeriesTTL          time.Duration
	SeriesMinutes      int
	CacheSize          int

	// DHT spreadsheet pipeline.
	DHTSheetURL string
	DHTTTL      time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	// Snapshot stream.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory, if present, seeds variables that are not
// already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	apiTimeout, err := parsePositiveDuration("API_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	refresh, err := parseDuration("REFRESH_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}
	if refresh < MinRefresh || refresh > MaxRefresh {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be between %s and %s", MinRefresh, MaxRefresh)
	}
	threshold, err := parseFloat("PM25_ALERT_THRESHOLD", 50)
	if err != nil {
		return nil, err
	}
	if threshold < MinAlertThreshold || threshold > MaxAlertThreshold {
		return nil, fmt.Errorf("PM25_ALERT_THRESHOLD must be between %d and %d", MinAlertThreshold, MaxAlertThreshold)
	}
	simulate, err := parseBool("SIMULATE_ON_FAILURE", true)
	if err != nil {
		return nil, err
	}
	latestTTL, err := parsePositiveDuration("LATEST_TTL", "10s")
	if err != nil {
		return nil, err
	}
	seriesTTL, err := parsePositiveDuration("SERIES_TTL", "15s")
	if err != nil {
		return nil, err
	}
	dhtTTL, err := parsePositiveDuration("DHT_TTL", "30s")
	if err != nil {
		return nil, err
	}
	seriesMinutes, err := parsePositiveInt("SERIES_MINUTES", 180)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIBaseURL:         strings.TrimRight(envOrDefault("API_BASE_URL", "http://localhost:8000"), "/"),
		APITimeout:         apiTimeout,
		PM25AlertThreshold: threshold,
		RefreshInterval:    refresh,
		SimulateOnFailure:  simulate,
		LatestTTL:          latestTTL,
		SeriesTTL:          seriesTTL,
		SeriesMinutes:      seriesMinutes,
		CacheSize:          cacheSize,
		DHTSheetURL:        envOrDefault("DHT_SHEET_URL", DefaultDHTSheetURL),
		DHTTTL:             dhtTTL,
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		LogFile:            os.Getenv("LOG_FILE"),
		ShutdownTimeout:    shutdownTimeout,
		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: envOrDefault("KAFKA_SNAPSHOT_TOPIC", "air-quality-snapshots"),
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if cfg.DHTSheetURL == "" {
		return nil, errors.New("DHT_SHEET_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SNAPSHOT_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
