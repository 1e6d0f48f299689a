package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort        string
	DatabaseURL       string
	AdminToken        string
	LogLevel          string
	GeminiAPIKey      string
	NaverClientID     string
	NaverClientSecret string
	CacheFile         string
	CrawlIntervalMin  string
	UserAgent         string
}

// FilterPolicy holds the tuned constants driving the hard filter, soft scorer
// and unit-economics comparator. The exact values were arrived at empirically
// against the live boards, so they stay injectable rather than hard-coded in
// the filter itself.
type FilterPolicy struct {
	MinComments          int           `json:"min_comments"`
	FreshnessWindow      time.Duration `json:"freshness_window"`
	FreshnessMinComments int           `json:"freshness_min_comments"`
	HighEngagementFloor  int           `json:"high_engagement_floor"`
	VelocityThreshold    float64       `json:"velocity_threshold"`
	USDToKRW             int           `json:"usd_to_krw"`
	FlatShippingFee      int           `json:"flat_shipping_fee"`
	QuantityCap          int           `json:"quantity_cap"`
	SavingsBonusFloor    int           `json:"savings_bonus_floor"`
	ScoreThreshold       float64       `json:"score_threshold"`
}

// DefaultFilterPolicy returns the production policy constants.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{
		MinComments:          3,
		FreshnessWindow:      30 * time.Minute,
		FreshnessMinComments: 1,
		HighEngagementFloor:  10,
		VelocityThreshold:    0.5,
		USDToKRW:             1450,
		FlatShippingFee:      3000,
		QuantityCap:          10000,
		SavingsBonusFloor:    30000,
		ScoreThreshold:       0,
	}
}

// GetCrawlInterval returns the pipeline interval from environment or default.
func (c *Config) GetCrawlInterval() time.Duration {
	if c.CrawlIntervalMin == "" {
		return 10 * time.Minute
	}
	minutes, err := strconv.Atoi(c.CrawlIntervalMin)
	if err != nil || minutes <= 0 {
		logrus.Warnf("Invalid CRAWL_INTERVAL_MINUTES value: %s, using default 10 minutes", c.CrawlIntervalMin)
		return 10 * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		NaverClientID:     getEnv("NAVER_CLIENT_ID", ""),
		NaverClientSecret: getEnv("NAVER_CLIENT_SECRET", ""),
		CacheFile:         getEnv("CACHE_FILE", "cache.json"),
		CrawlIntervalMin:  getEnv("CRAWL_INTERVAL_MINUTES", "10"),
		UserAgent: getEnv("USER_AGENT",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
